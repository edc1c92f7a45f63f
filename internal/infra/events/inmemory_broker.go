package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// InMemoryBroker implementa un bus de eventos multi-topic sobre canales de Go.
// Los topics se crean bajo demanda: los topics de respuesta del gateway
// (uno por correlation id) aparecen y desaparecen constantemente.
type InMemoryBroker struct {
	mu     sync.RWMutex
	topics map[string][]chan []byte
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ sharedBus.Broker = (*InMemoryBroker)(nil)

func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics: make(map[string][]chan []byte),
	}
}

// Publish envía un evento a todos los suscriptores del topic.
// La entrega es al-menos-una-vez dentro del proceso; un suscriptor con el
// buffer lleno pierde el mensaje (igual que un consumidor lento en Kafka
// sin offset commit).
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := make([]chan []byte, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	for _, subChan := range subs {
		select {
		case subChan <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registra un nuevo oyente en el topic y devuelve el canal de
// mensajes junto con la función para darse de baja.
func (b *InMemoryBroker) Subscribe(topic string, buffer int) (<-chan []byte, func()) {
	subChan := make(chan []byte, buffer)

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], subChan)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		for i, ch := range subs {
			if ch == subChan {
				b.topics[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
	}
	return subChan, cancel
}
