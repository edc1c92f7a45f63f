package domain

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindowStore implementa WindowStore en memoria para los tests.
type fakeWindowStore struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{sent: make(map[string]time.Time)}
}

func (s *fakeWindowStore) LastSent(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sent[key]
	return t, ok, nil
}

func (s *fakeWindowStore) SetLastSent(ctx context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[key] = at
	return nil
}

func TestLimiter_FirstSendAllowed(t *testing.T) {
	store := newFakeWindowStore()
	limiter := NewLimiter(store)

	d, err := limiter.Check(context.Background(), "+34600111222")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiter_BlockedWithinWindow(t *testing.T) {
	store := newFakeWindowStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	limiter := NewLimiterWithClock(store, Window, func() time.Time { return now })

	d, err := limiter.Check(context.Background(), "+34600111222")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Minuto 9: aún dentro de la ventana.
	now = base.Add(9 * time.Minute)
	d, err = limiter.Check(context.Background(), "+34600111222")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.WaitMinutes)

	// Minuto 11: la ventana ya pasó.
	now = base.Add(11 * time.Minute)
	d, err = limiter.Check(context.Background(), "+34600111222")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiter_WaitMinutesBounds(t *testing.T) {
	store := newFakeWindowStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	limiter := NewLimiterWithClock(store, Window, func() time.Time { return now })

	d, err := limiter.Check(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Justo después de admitir: espera completa.
	now = base.Add(1 * time.Second)
	d, _ = limiter.Check(context.Background(), "key")
	assert.False(t, d.Allowed)
	assert.Equal(t, 10, d.WaitMinutes)

	// A un segundo de abrirse: nunca se comunica una espera de 0 minutos.
	now = base.Add(Window - time.Second)
	d, _ = limiter.Check(context.Background(), "key")
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.WaitMinutes)
}

func TestLimiter_StampOnAdmission(t *testing.T) {
	store := newFakeWindowStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiterWithClock(store, Window, func() time.Time { return base })

	// El sello se escribe al admitir, no tras el envío: una segunda
	// comprobación en el mismo instante ya encuentra la ventana cerrada.
	d, err := limiter.Check(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = limiter.Check(context.Background(), "key")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	store := newFakeWindowStore()
	limiter := NewLimiter(store)

	d, err := limiter.Check(context.Background(), "+34600111222")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Otra clave no comparte ventana.
	d, err = limiter.Check(context.Background(), "+34600333444")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
