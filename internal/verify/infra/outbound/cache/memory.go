package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// MemoryStore implementa WindowStore y CodeStore en memoria de proceso.
// Las entradas caducan lógicamente: no hay purga proactiva, la caducidad se
// comprueba al leer. Vale para una instancia; para escalar se usa Redis.
type MemoryStore struct {
	mu    sync.Mutex
	sent  map[string]time.Time
	codes map[string]codeEntry
}

type codeEntry struct {
	code      string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sent:  make(map[string]time.Time),
		codes: make(map[string]codeEntry),
	}
}

// --- WindowStore ---

func (s *MemoryStore) LastSent(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sent[key]
	return t, ok, nil
}

func (s *MemoryStore) SetLastSent(ctx context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[key] = at
	return nil
}

// --- CodeStore ---

func (s *MemoryStore) PutCode(ctx context.Context, to, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[to] = codeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) ConsumeCode(ctx context.Context, to, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[to]
	if !ok || time.Now().After(entry.expiresAt) || entry.code != code {
		return false, nil
	}
	delete(s.codes, to)
	return true, nil
}

// Verificación en tiempo de compilación.
var (
	_ domain.WindowStore = (*MemoryStore)(nil)
	_ domain.CodeStore   = (*MemoryStore)(nil)
)
