package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Envelope es la base de todos los eventos de integración que viajan por el bus.
// Solo "type" es obligatorio; el resto depende del productor.
type Envelope struct {
	Type          string          `json:"type"`
	OriginService string          `json:"originService,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	To            string          `json:"to,omitempty"`
	Target        []string        `json:"target,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Targets indica si el evento va dirigido al canal dado.
func (e Envelope) Targets(channel string) bool {
	for _, t := range e.Target {
		if t == channel {
			return true
		}
	}
	return false
}

// Kind clasifica los tipos de evento en variantes cerradas.
// Un Acknowledgment o un Failure es terminal: nunca se reinterpreta
// como una nueva orden de envío (invariante anti-bucle).
type Kind int

const (
	KindCommand Kind = iota
	KindAcknowledgment
	KindFailure
)

// Tipos de evento compartidos entre contextos.
const (
	NotificationRequested = "notification.requested"
	SessionCompleted      = "game.session.completed"
	ChannelSendSucceeded  = "channel.send.succeeded"
	ChannelSendFailed     = "channel.send.failed"
	ChannelReceipt        = "channel.receipt"
)

var kinds = map[string]Kind{
	NotificationRequested: KindCommand,
	SessionCompleted:      KindCommand,
	ChannelSendSucceeded:  KindAcknowledgment,
	ChannelReceipt:        KindAcknowledgment,
	ChannelSendFailed:     KindFailure,
}

// KindOf devuelve la variante del tipo de evento.
// Un tipo desconocido se trata como Command: es trabajo nuevo salvo que
// esté registrado explícitamente como acuse o fallo.
func KindOf(eventType string) Kind {
	if k, ok := kinds[eventType]; ok {
		return k
	}
	return KindCommand
}

// Terminal indica si el tipo de evento es un acuse o un fallo,
// es decir, si no debe generar reenvíos.
func Terminal(eventType string) bool {
	switch KindOf(eventType) {
	case KindAcknowledgment, KindFailure:
		return true
	}
	return false
}

// EventMetadata asocia un tipo de evento con su struct Go, su topic destino
// y los canales de entrega a los que va dirigido al publicarse.
type EventMetadata struct {
	Type   reflect.Type
	Topic  string
	Target []string
}
