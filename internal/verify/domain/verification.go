package domain

import (
	"context"
	"errors"
	"time"
)

// ---------- Errores de dominio ----------
var (
	// ErrTransportUnavailable: el proveedor requerido no está configurado.
	// Se comunica tal cual al cliente y nunca se reintenta.
	ErrTransportUnavailable = errors.New("verification transport not configured")

	ErrCodeMismatch = errors.New("verification code mismatch or expired")
)

// CodeTTL es la vigencia de un código emitido.
const CodeTTL = 10 * time.Minute

// CodeStore guarda los códigos emitidos con su caducidad.
type CodeStore interface {
	PutCode(ctx context.Context, to, code string, ttl time.Duration) error

	// ConsumeCode compara y, si coincide, elimina el código (un solo uso).
	// Devuelve false si no hay código, caducó o no coincide.
	ConsumeCode(ctx context.Context, to, code string) (bool, error)
}

// SMSSender es el transporte opaco de códigos de verificación.
type SMSSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// Attempt es el registro de auditoría de un intento de envío.
type Attempt struct {
	To        string    `json:"to"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"` // "sent" | "rate-limited" | "failed"
	Timestamp time.Time `json:"timestamp"`
}

// AttemptRepository audita los intentos de verificación.
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, a Attempt) error
}
