package mocks

import (
	"context"
	"sync"

	verifyDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// FakeSMSSender captura los códigos enviados; Err simula un proveedor caído.
type FakeSMSSender struct {
	mu    sync.Mutex
	Err   error
	Codes map[string]string // to -> último código enviado
}

func NewFakeSMSSender() *FakeSMSSender {
	return &FakeSMSSender{Codes: make(map[string]string)}
}

func (s *FakeSMSSender) SendCode(ctx context.Context, to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Codes[to] = code
	return nil
}

// InMemoryAttemptRepo acumula los intentos auditados.
type InMemoryAttemptRepo struct {
	mu       sync.Mutex
	Attempts []verifyDomain.Attempt
}

func (r *InMemoryAttemptRepo) SaveAttempt(ctx context.Context, a verifyDomain.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Attempts = append(r.Attempts, a)
	return nil
}

// Statuses devuelve los estados auditados en orden.
func (r *InMemoryAttemptRepo) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		out = append(out, a.Status)
	}
	return out
}
