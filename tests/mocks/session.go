package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	sessionDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	sharedDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain"
)

// InMemorySessionRepo simula SessionRepository con outbox incluido.
type InMemorySessionRepo struct {
	Sessions map[uuid.UUID]*sessionDomain.GameSession
	Outbox   []sharedDomain.OutboxEvent
	mu       sync.Mutex

	// FailComplete fuerza un error en Complete para simular caídas de la BD.
	FailComplete error
}

func NewInMemorySessionRepo() *InMemorySessionRepo {
	return &InMemorySessionRepo{
		Sessions: make(map[uuid.UUID]*sessionDomain.GameSession),
		Outbox:   []sharedDomain.OutboxEvent{},
	}
}

func (r *InMemorySessionRepo) Create(ctx context.Context, s *sessionDomain.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Sessions[s.ID]; ok {
		return sessionDomain.ErrSessionAlreadyExists
	}
	cp := *s
	r.Sessions[s.ID] = &cp
	return nil
}

func (r *InMemorySessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*sessionDomain.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Sessions[id]
	if !ok {
		return nil, sessionDomain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// Complete escribe sesión y evento de outbox "atómicamente" (bajo un mutex).
func (r *InMemorySessionRepo) Complete(ctx context.Context, s *sessionDomain.GameSession, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailComplete != nil {
		return r.FailComplete
	}
	prev, ok := r.Sessions[s.ID]
	if !ok {
		return sessionDomain.ErrSessionNotFound
	}
	if prev.IsCompleted {
		return sessionDomain.ErrSessionAlreadyCompleted
	}
	cp := *s
	r.Sessions[s.ID] = &cp
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemorySessionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*sessionDomain.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*sessionDomain.GameSession
	for _, s := range r.Sessions {
		if s.UserID == userID {
			cp := *s
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartedAt.After(list[j].StartedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// FetchPendingOutbox y MarkOutboxProcessed permiten usar el repo también
// como fuente del worker de outbox en tests.
func (r *InMemorySessionRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []sharedDomain.OutboxEvent
	for _, evt := range r.Outbox {
		if !evt.Processed {
			pending = append(pending, evt)
		}
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (r *InMemorySessionRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Outbox {
		if r.Outbox[i].ID == id {
			r.Outbox[i].Processed = true
			return nil
		}
	}
	return errors.New("outbox event not found")
}

// FakeTracker simula el tracker de engagement externo.
type FakeTracker struct {
	mu      sync.Mutex
	Err     error
	Tracked []*sessionDomain.GameSession
}

func (t *FakeTracker) Track(ctx context.Context, s *sessionDomain.GameSession) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Tracked = append(t.Tracked, s)
	return nil
}
