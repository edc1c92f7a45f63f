package mocks

import (
	"context"
	"sync"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
)

// InMemoryDeadLetterStore simula el registro de cartas muertas.
type InMemoryDeadLetterStore struct {
	mu      sync.Mutex
	Records []dlDomain.Record
}

func NewInMemoryDeadLetterStore() *InMemoryDeadLetterStore {
	return &InMemoryDeadLetterStore{}
}

func (s *InMemoryDeadLetterStore) Append(ctx context.Context, rec dlDomain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Records = append(s.Records, rec)
	return nil
}

func (s *InMemoryDeadLetterStore) List(ctx context.Context, channel string, limit int) ([]dlDomain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []dlDomain.Record
	for i := len(s.Records) - 1; i >= 0; i-- {
		if channel == "" || s.Records[i].Channel == channel {
			list = append(list, s.Records[i])
		}
		if limit > 0 && len(list) >= limit {
			break
		}
	}
	return list, nil
}
