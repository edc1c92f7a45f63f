package relayer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain"
	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/tests/mocks"
)

func testRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		sharedEvents.SessionCompleted: {
			Topic:  "care-events",
			Target: []string{"mobile"},
		},
	}
}

// El payload es un struct a propósito: el sobre debe salir con el UserID del
// propio evento de outbox, sin escarbar en la forma del payload.
func pendingEvent(eventType string) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "session",
		AggregateID:   uuid.New().String(),
		EventType:     eventType,
		UserID:        "user-1",
		Payload: struct {
			UserID       string `json:"userId"`
			PointsEarned int    `json:"pointsEarned"`
		}{UserID: "user-1", PointsEarned: 30},
		CreatedAt: time.Now().UTC(),
	}
}

func TestOutboxWorker_PublishesEnvelopeAndMarks(t *testing.T) {
	evt := pendingEvent(sharedEvents.SessionCompleted)

	repo := new(mocks.MockOutboxRepository)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil)
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil)

	publisher := &mocks.CapturingPublisher{}
	deadLetters := mocks.NewInMemoryDeadLetterStore()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), deadLetters, "care-session", time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	repo.AssertExpectations(t)

	// El evento sale envuelto en el sobre de integración con su Target.
	published := publisher.ByTopic("care-events")
	require.Len(t, published, 1)

	var env sharedEvents.Envelope
	require.NoError(t, json.Unmarshal(published[0].Payload, &env))
	assert.Equal(t, sharedEvents.SessionCompleted, env.Type)
	assert.Equal(t, "care-session", env.OriginService)
	assert.Equal(t, "user-1", env.UserID)
	assert.Equal(t, []string{"mobile"}, env.Target)
	assert.Empty(t, deadLetters.Records)
}

func TestOutboxWorker_PublishFailureLeavesEventPending(t *testing.T) {
	evt := pendingEvent(sharedEvents.SessionCompleted)

	repo := new(mocks.MockOutboxRepository)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil)

	publisher := &mocks.CapturingPublisher{Err: assert.AnError}

	worker := NewOutboxWorker(repo, publisher, testRegistry(), nil, "care-session", time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	// Si el bus falla el evento no se marca: el siguiente tick lo reintenta.
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_UnknownEventTypeGoesToDeadLetters(t *testing.T) {
	evt := pendingEvent("tipo.desconocido")

	repo := new(mocks.MockOutboxRepository)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{evt}, nil)
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil)

	publisher := &mocks.CapturingPublisher{}
	deadLetters := mocks.NewInMemoryDeadLetterStore()

	worker := NewOutboxWorker(repo, publisher, testRegistry(), deadLetters, "care-session", time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	// Una fila que nunca podrá publicarse se aparta para no envenenar el
	// lote en cada tick.
	repo.AssertExpectations(t)
	assert.Empty(t, publisher.Messages)
	require.Len(t, deadLetters.Records, 1)
	assert.Equal(t, "outbox", deadLetters.Records[0].Channel)
}

func TestOutboxWorker_FetchErrorIsTolerated(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent(nil), assert.AnError)

	worker := NewOutboxWorker(repo, &mocks.CapturingPublisher{}, testRegistry(), nil, "care-session", time.Second, 10, zap.NewNop())
	worker.ProcessBatch(context.Background())

	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}
