package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// ---------- Errores de dominio ----------
var (
	ErrSessionNotFound         = errors.New("game session not found")
	ErrSessionAlreadyExists    = errors.New("game session already exists")
	ErrSessionAlreadyCompleted = errors.New("game session already completed")
	ErrUnknownGame             = errors.New("unknown game id")
)

// GameSession representa una partida desde su creación hasta su cierre.
// Se crea una vez por partida, se completa exactamente una vez y nunca se
// borra. Completed implica CompletedAt informado y PointsEarned fijado.
type GameSession struct {
	ID           uuid.UUID              `json:"sessionId"`
	UserID       string                 `json:"userId"`
	GameID       string                 `json:"gameId"`
	GameType     GameType               `json:"gameType"`
	StartedAt    time.Time              `json:"startedAt"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
	Score        int                    `json:"score"`
	PointsEarned int                    `json:"pointsEarned"`
	IsCompleted  bool                   `json:"isCompleted"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (s *GameSession) PartitionKey() string {
	return s.UserID
}

var _ sharedBus.Keyer = (*GameSession)(nil)

// ---------- Interfaces (Ports) ----------

// SessionRepository define las operaciones persistentes para GameSession.
// Complete debe escribir la sesión y su evento de outbox atómicamente.
type SessionRepository interface {
	// Debe devolver ErrSessionAlreadyExists si la sesión ya existe.
	Create(ctx context.Context, s *GameSession) error

	// Debe devolver ErrSessionNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*GameSession, error)

	// Complete persiste la sesión completada junto con el evento de outbox
	// en una única transacción.
	Complete(ctx context.Context, s *GameSession, evt sharedDomain.OutboxEvent) error

	// ListByUser devuelve las sesiones de un usuario, más recientes primero.
	ListByUser(ctx context.Context, userID string, limit int) ([]*GameSession, error)
}

// EngagementTracker notifica la partida completada a un sistema externo de
// seguimiento. Es mejor-esfuerzo: su fallo nunca invalida la partida.
type EngagementTracker interface {
	Track(ctx context.Context, s *GameSession) error
}
