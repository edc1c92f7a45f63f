package mocks

import (
	"context"
	"sync"
	"time"

	deliveryDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/domain"
)

// InMemoryRegistrationRepo simula RegistrationRepository indexado por token.
type InMemoryRegistrationRepo struct {
	Registrations map[string]*deliveryDomain.DeviceRegistration
	mu            sync.Mutex
}

func NewInMemoryRegistrationRepo() *InMemoryRegistrationRepo {
	return &InMemoryRegistrationRepo{
		Registrations: make(map[string]*deliveryDomain.DeviceRegistration),
	}
}

func (r *InMemoryRegistrationRepo) Create(ctx context.Context, reg *deliveryDomain.DeviceRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Registrations[reg.Token]; ok {
		return deliveryDomain.ErrRegistrationExists
	}
	cp := *reg
	r.Registrations[reg.Token] = &cp
	return nil
}

func (r *InMemoryRegistrationRepo) ListActiveByUser(ctx context.Context, userID string) ([]*deliveryDomain.DeviceRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*deliveryDomain.DeviceRegistration
	for _, reg := range r.Registrations {
		if reg.UserID == userID && !reg.Revoked {
			cp := *reg
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *InMemoryRegistrationRepo) UpdateLastSeen(ctx context.Context, token string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.Registrations[token]
	if !ok {
		return deliveryDomain.ErrRegistrationNotFound
	}
	reg.LastSeenAt = at
	return nil
}

func (r *InMemoryRegistrationRepo) Revoke(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.Registrations[token]
	if !ok {
		return deliveryDomain.ErrRegistrationNotFound
	}
	reg.Revoked = true
	return nil
}

// IsRevoked es un ayudante de aserción para los tests.
func (r *InMemoryRegistrationRepo) IsRevoked(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.Registrations[token]
	return ok && reg.Revoked
}

// FakeTransport simula un proveedor de push. Err se devuelve en cada Send;
// las entregas con éxito quedan en Sent.
type FakeTransport struct {
	TransportName string
	Err           error
	mu            sync.Mutex
	Sent          []deliveryDomain.Message
}

func (t *FakeTransport) Send(ctx context.Context, msg deliveryDomain.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Sent = append(t.Sent, msg)
	return nil
}

// SentCount permite asertar entregas desde otra goroutine sin carreras.
func (t *FakeTransport) SentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Sent)
}

// LastSent devuelve la última entrega registrada, protegida por el mutex.
func (t *FakeTransport) LastSent() deliveryDomain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Sent) == 0 {
		return deliveryDomain.Message{}
	}
	return t.Sent[len(t.Sent)-1]
}

func (t *FakeTransport) Name() string {
	if t.TransportName == "" {
		return "fake"
	}
	return t.TransportName
}
