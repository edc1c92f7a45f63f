package events

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// KafkaBroker implementa bus.Broker sobre Kafka. Las suscripciones crean un
// reader dedicado por topic: es lo que necesita el gateway, cuyos topics de
// respuesta son efímeros y de un solo consumidor (sin group id, leemos desde
// el último offset).
type KafkaBroker struct {
	brokers   []string
	publisher *KafkaPublisher
	log       *zap.Logger
}

var _ sharedBus.Broker = (*KafkaBroker)(nil)

func NewKafkaBroker(brokers []string, writer *kafka.Writer, log *zap.Logger) *KafkaBroker {
	return &KafkaBroker{
		brokers:   brokers,
		publisher: NewKafkaPublisher(writer, log),
		log:       log,
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, topic string, event interface{}) error {
	return b.publisher.Publish(ctx, topic, event)
}

func (b *KafkaBroker) Subscribe(topic string, buffer int) (<-chan []byte, func()) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.LastOffset,
	})

	ch := make(chan []byte, buffer)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(ch)
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.log.Error("Error al leer del topic suscrito", zap.String("topic", topic), zap.Error(err))
				return
			}
			select {
			case ch <- msg.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, func() {
		cancel()
		if err := reader.Close(); err != nil {
			b.log.Warn("⚠️ Error al cerrar el reader", zap.String("topic", topic), zap.Error(err))
		}
	}
}
