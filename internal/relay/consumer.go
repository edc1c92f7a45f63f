package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// AuditRecord es la copia de auditoría que se persiste por cada evento
// recibido. Es durabilidad, no corrección: perder una no rompe nada.
type AuditRecord struct {
	ID         uuid.UUID `json:"id"`
	MessageID  string    `json:"messageId"`
	EventType  string    `json:"eventType"`
	UserID     string    `json:"userId,omitempty"`
	Raw        []byte    `json:"raw"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// AuditRepository persiste copias de auditoría.
type AuditRepository interface {
	SaveAudit(ctx context.Context, rec AuditRecord) error
}

// ProcessedLedger registra qué mensajes ya se consumieron.
// MarkIfNew devuelve false si el mensaje ya estaba anotado.
type ProcessedLedger interface {
	MarkIfNew(ctx context.Context, messageID string) (bool, error)
}

// AnalyticsSink recibe las copias de auditoría para explotación analítica.
type AnalyticsSink interface {
	Append(ctx context.Context, rec AuditRecord) error
}

// Consumer es el fan-out idempotente del topic compartido de eventos:
// audita cada evento, lo deja en el ring buffer y lo reenvía a los topics
// de canal que indique Target.
//
// Los eventos cuyo tipo es un acuse o un fallo son terminales y NUNCA se
// reenvían: sin ese filtro, un "mensaje enviado" se releería como "envía un
// mensaje" y el ciclo no acabaría.
type Consumer struct {
	audit     AuditRepository
	ledger    ProcessedLedger
	ring      *RingBuffer
	analytics AnalyticsSink
	publisher sharedBus.EventPublisher
	topic     string
	log       *zap.Logger
}

func NewConsumer(
	audit AuditRepository,
	ledger ProcessedLedger,
	ring *RingBuffer,
	analytics AnalyticsSink,
	publisher sharedBus.EventPublisher,
	topic string,
	log *zap.Logger,
) *Consumer {
	return &Consumer{
		audit:     audit,
		ledger:    ledger,
		ring:      ring,
		analytics: analytics,
		publisher: publisher,
		topic:     topic,
		log:       log,
	}
}

// ChannelTopic deriva el topic de un canal de entrega a partir del topic
// compartido (ej. care-events.mobile).
func ChannelTopic(base, channel string) string {
	return base + "." + channel
}

func (c *Consumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Type == "" {
		// Un payload malformado se descarta aquí y no se re-publica jamás:
		// un mensaje veneno no debe circular.
		c.log.Warn("Evento malformado descartado", zap.String("key", key), zap.Error(err))
		return
	}

	msgID := messageID(env, payload)
	if fresh, err := c.ledger.MarkIfNew(ctx, msgID); err != nil {
		c.log.Warn("⚠️ No se pudo consultar el ledger de procesados, seguimos",
			zap.String("message_id", msgID), zap.Error(err))
	} else if !fresh {
		c.log.Info("Evento duplicado ignorado", zap.String("message_id", msgID))
		return
	}

	rec := AuditRecord{
		ID:         uuid.New(),
		MessageID:  msgID,
		EventType:  env.Type,
		UserID:     env.UserID,
		Raw:        payload,
		ReceivedAt: time.Now().UTC(),
	}
	if err := c.audit.SaveAudit(ctx, rec); err != nil {
		c.log.Warn("⚠️ No se pudo auditar el evento", zap.String("message_id", msgID), zap.Error(err))
	}

	c.ring.Append(env)

	if c.analytics != nil {
		if err := c.analytics.Append(ctx, rec); err != nil {
			c.log.Warn("⚠️ Sink analítico no disponible", zap.Error(err))
		}
	}

	if sharedEvents.Terminal(env.Type) {
		c.log.Debug("Evento terminal, no se reenvía", zap.String("type", env.Type))
		return
	}

	for _, channel := range env.Target {
		if err := c.publisher.Publish(ctx, ChannelTopic(c.topic, channel), env); err != nil {
			c.log.Warn("⚠️ No se pudo reenviar el evento al canal",
				zap.String("channel", channel),
				zap.String("type", env.Type),
				zap.Error(err),
			)
		}
	}
}

// messageID identifica el mensaje para el ledger: tipo + correlation id si
// viene, y si no un hash del payload completo. El correlation id solo no
// basta: un acuse hereda el cid de la orden que lo originó y el ledger lo
// confundiría con una redelivery de esa orden.
func messageID(env sharedEvents.Envelope, payload []byte) string {
	if env.CorrelationID != "" {
		return env.Type + ":" + env.CorrelationID
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
