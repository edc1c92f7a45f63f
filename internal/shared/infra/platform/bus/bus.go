package bus

import "context"

type Keyer interface {
	PartitionKey() string
}

// La semántica de topic/nombre y formato del payload la decides en los adapters.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event interface{}) error
}

// Subscriber entrega los mensajes crudos de un topic por un canal.
// La función de cancelación libera la suscripción (obligatorio llamarla:
// los topics de respuesta del gateway son efímeros).
type Subscriber interface {
	Subscribe(topic string, buffer int) (<-chan []byte, func())
}

// Broker combina publicación y suscripción sobre el mismo transporte.
type Broker interface {
	EventPublisher
	Subscriber
}
