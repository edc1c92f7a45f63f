package domain

import (
	"context"
	"errors"
	"time"
)

// ---------- Errores de dominio ----------
var (
	ErrRegistrationNotFound = errors.New("device registration not found")
	ErrRegistrationExists   = errors.New("device registration already exists")

	// ErrRegistrationInvalid es el fallo permanente: el transporte afirma
	// que el token ya no es entregable. Los transportes deben envolverlo
	// para que el worker pueda clasificar con errors.Is.
	ErrRegistrationInvalid = errors.New("registration token invalid")
)

// DeviceRegistration es el registro de push de un dispositivo.
// Revoked es monotónico: solo pasa de false a true, nunca al revés.
type DeviceRegistration struct {
	UserID     string    `json:"userId"`
	Token      string    `json:"token"` // único
	Platform   string    `json:"platform"`
	Revoked    bool      `json:"revoked"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// ---------- Interfaces (Ports) ----------

// RegistrationRepository define las operaciones persistentes de registros.
type RegistrationRepository interface {
	// Debe devolver ErrRegistrationExists si el token ya está registrado.
	Create(ctx context.Context, reg *DeviceRegistration) error

	// ListActiveByUser devuelve los registros no revocados del usuario.
	ListActiveByUser(ctx context.Context, userID string) ([]*DeviceRegistration, error)

	// UpdateLastSeen sella la última entrega con éxito del token.
	UpdateLastSeen(ctx context.Context, token string, at time.Time) error

	// Revoke marca el token como revocado. Debe devolver
	// ErrRegistrationNotFound si no existe.
	Revoke(ctx context.Context, token string) error
}

// Message es el contenido que viaja por un transporte opaco.
type Message struct {
	Token string `json:"token"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body"`
}

// Transport es el contrato con un proveedor de entrega externo.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}
