package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/gateway"
	sessionApp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/application"
	sessionDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
)

// Operaciones atendidas por el gateway de petición/respuesta.
const (
	OpStartSession    = "start-session"
	OpCompleteSession = "complete-session"
)

type startRequest struct {
	UserID string `json:"userId"`
	GameID string `json:"gameId"`
}

type completeRequest struct {
	SessionID string `json:"sessionId"`
	sessionDomain.CompletionInput
}

type completeResponse struct {
	PointsEarned int                         `json:"pointsEarned"`
	Warning      string                      `json:"warning,omitempty"`
	Engagement   sessionApp.EngagementStatus `json:"engagement"`
}

// RegisterSessionHandlers conecta los casos de uso del libro de sesiones con
// el responder del gateway.
func RegisterSessionHandlers(r *gateway.Responder, service *sessionApp.SessionService, log *zap.Logger) {
	r.Handle(OpStartSession, func(ctx context.Context, env sharedEvents.Envelope) (interface{}, error) {
		var req startRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid start-session request: %w", err)
		}
		if req.UserID == "" || req.GameID == "" {
			return nil, fmt.Errorf("userId and gameId are required")
		}
		return service.StartSession(ctx, req.UserID, req.GameID)
	})

	r.Handle(OpCompleteSession, func(ctx context.Context, env sharedEvents.Envelope) (interface{}, error) {
		var req completeRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid complete-session request: %w", err)
		}

		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("invalid sessionId: %w", err)
		}

		result, err := service.CompleteSession(ctx, sessionID, req.CompletionInput)
		if err != nil {
			if sessionApp.IsDuplicateCompletion(err) {
				log.Info("Cierre duplicado ignorado",
					zap.String("session_id", sessionID.String()),
					zap.String("correlation_id", env.CorrelationID),
				)
			}
			return nil, err
		}

		return completeResponse{
			PointsEarned: result.PointsEarned,
			Warning:      result.Warning,
			Engagement:   result.Engagement,
		}, nil
	})
}
