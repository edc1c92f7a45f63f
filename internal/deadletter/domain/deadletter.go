package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record es una entrega que agotó sus intentos. Solo se anexa, nunca se
// muta: queda disponible para inspección y reenvío manual.
type Record struct {
	ID              uuid.UUID `json:"id"`
	Channel         string    `json:"channel"`
	OriginalMessage []byte    `json:"originalMessage"`
	ErrorReason     string    `json:"errorReason"`
	Timestamp       time.Time `json:"timestamp"`
}

// Store define el contrato del registro de cartas muertas.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, channel string, limit int) ([]Record, error)
}

// New construye un registro con id y sello de tiempo generados.
func New(channel string, original []byte, reason string) Record {
	return Record{
		ID:              uuid.New(),
		Channel:         channel,
		OriginalMessage: original,
		ErrorReason:     reason,
		Timestamp:       time.Now().UTC(),
	}
}
