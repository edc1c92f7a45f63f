package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"
)

// PublishedMessage es un mensaje capturado por CapturingPublisher.
type PublishedMessage struct {
	Topic   string
	Payload []byte
}

// CapturingPublisher guarda todo lo publicado para verificarlo en tests.
type CapturingPublisher struct {
	mu       sync.Mutex
	Err      error
	Messages []PublishedMessage
}

func (p *CapturingPublisher) Publish(ctx context.Context, topic string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.Messages = append(p.Messages, PublishedMessage{Topic: topic, Payload: data})
	return nil
}

// ByTopic devuelve los mensajes capturados para un topic.
func (p *CapturingPublisher) ByTopic(topic string) []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedMessage
	for _, m := range p.Messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// MockPublisher simula un publisher con expectativas de testify.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event interface{}) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}
