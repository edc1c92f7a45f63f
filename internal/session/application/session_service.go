package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	sharedDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain"
	sharedUtils "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/utils"
)

// Outcome distingue un éxito pleno de un éxito degradado. Un resultado
// Degraded es correcto localmente pero alguna llamada secundaria falló;
// el llamante no puede confundirlo con un OK por accidente.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
)

// EngagementStatus refleja el intento de notificar al tracker externo.
type EngagementStatus struct {
	Tracked bool   `json:"tracked"`
	Error   string `json:"error,omitempty"`
}

// CompletionResult es la respuesta del cierre de sesión.
type CompletionResult struct {
	Session      *domain.GameSession `json:"session"`
	PointsEarned int                 `json:"pointsEarned"`
	Outcome      Outcome             `json:"-"`
	Warning      string              `json:"warning,omitempty"`
	Engagement   EngagementStatus    `json:"engagement"`
}

// SessionService define los casos de uso del libro de sesiones.
type SessionService struct {
	repo    domain.SessionRepository
	catalog domain.Catalog
	tracker domain.EngagementTracker
	log     *zap.Logger
}

func NewSessionService(repo domain.SessionRepository, catalog domain.Catalog, tracker domain.EngagementTracker, log *zap.Logger) *SessionService {
	return &SessionService{
		repo:    repo,
		catalog: catalog,
		tracker: tracker,
		log:     log,
	}
}

// StartSession abre una partida nueva y sella StartedAt.
func (s *SessionService) StartSession(ctx context.Context, userID, gameID string) (*domain.GameSession, error) {
	cfg, ok := s.catalog[gameID]
	if !ok {
		return nil, domain.ErrUnknownGame
	}

	session := &domain.GameSession{
		ID:        uuid.New(),
		UserID:    userID,
		GameID:    gameID,
		GameType:  cfg.Type,
		StartedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CompleteSession cierra la partida, fija los puntos y anota el evento de
// outbox en la misma transacción. El cierre es idempotente: una sesión ya
// completada devuelve ErrSessionAlreadyCompleted y no vuelve a puntuar.
//
// La notificación al tracker de engagement es mejor-esfuerzo: si falla, el
// cierre sigue siendo válido y el resultado llega como Degraded con el aviso.
func (s *SessionService) CompleteSession(ctx context.Context, sessionID uuid.UUID, in domain.CompletionInput) (*CompletionResult, error) {
	var session *domain.GameSession
	err := sharedUtils.Retry(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		session, err = s.repo.GetByID(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if session.IsCompleted {
		return nil, domain.ErrSessionAlreadyCompleted
	}

	cfg, ok := s.catalog[session.GameID]
	if !ok {
		return nil, domain.ErrUnknownGame
	}

	now := time.Now().UTC()
	session.CompletedAt = &now
	session.Score = in.Score
	session.PointsEarned = domain.Award(cfg, in)
	session.IsCompleted = true
	session.Metadata = in.Metadata

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "session",
		AggregateID:   session.ID.String(),
		EventType:     domain.SessionCompleted,
		UserID:        session.UserID,
		Payload:       session,
		CreatedAt:     now,
		Processed:     false,
	}

	if err := s.repo.Complete(ctx, session, evt); err != nil {
		return nil, err
	}

	result := &CompletionResult{
		Session:      session,
		PointsEarned: session.PointsEarned,
		Outcome:      OutcomeOK,
		Engagement:   EngagementStatus{Tracked: true},
	}

	if s.tracker != nil {
		if trackErr := s.tracker.Track(ctx, session); trackErr != nil {
			// El registro local es la fuente de verdad; el tracker externo
			// se reconcilia a mano cuando se queda atrás.
			s.log.Warn("⚠️ Engagement tracker no disponible, cierre degradado",
				zap.String("session_id", session.ID.String()),
				zap.Error(trackErr),
			)
			result.Outcome = OutcomeDegraded
			result.Warning = "session saved but engagement tracking failed"
			result.Engagement = EngagementStatus{Tracked: false, Error: trackErr.Error()}
		}
	}

	return result, nil
}

// GetSession obtiene una partida por id.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*domain.GameSession, error) {
	return s.repo.GetByID(ctx, id)
}

// ListSessions devuelve las partidas recientes de un usuario.
func (s *SessionService) ListSessions(ctx context.Context, userID string, limit int) ([]*domain.GameSession, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// IsDuplicateCompletion ayuda a los handlers a mapear el error de idempotencia.
func IsDuplicateCompletion(err error) bool {
	return errors.Is(err, domain.ErrSessionAlreadyCompleted)
}
