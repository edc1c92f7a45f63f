package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/tests/mocks"
)

func intPtr(v int) *int { return &v }

func newTestSessionService(repo *mocks.InMemorySessionRepo, tracker domain.EngagementTracker) *SessionService {
	return NewSessionService(repo, domain.DefaultCatalog(), tracker, zap.NewNop())
}

func TestStartSession_Success(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	service := newTestSessionService(repo, nil)

	session, err := service.StartSession(context.Background(), "user-1", "daily-trivia")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, domain.GameTypeQuiz, session.GameType)
	assert.False(t, session.IsCompleted)
	assert.False(t, session.StartedAt.IsZero())
}

func TestStartSession_UnknownGame(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	service := newTestSessionService(repo, nil)

	_, err := service.StartSession(context.Background(), "user-1", "no-existe")
	assert.ErrorIs(t, err, domain.ErrUnknownGame)
}

func TestCompleteSession_AwardsPointsAndWritesOutbox(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	tracker := &mocks.FakeTracker{}
	service := newTestSessionService(repo, tracker)

	session, err := service.StartSession(context.Background(), "user-1", "daily-trivia")
	require.NoError(t, err)

	result, err := service.CompleteSession(context.Background(), session.ID, domain.CompletionInput{
		Score:          100,
		CorrectAnswers: intPtr(10),
		TotalQuestions: intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, result.PointsEarned) // 20 base + 10 de bonus
	assert.Equal(t, OutcomeOK, result.Outcome)
	assert.True(t, result.Engagement.Tracked)
	assert.True(t, result.Session.IsCompleted)
	require.NotNil(t, result.Session.CompletedAt)

	// ✅ El evento de outbox se anota junto con la sesión, con el usuario a
	// bordo: el relayer lo necesita para dirigir la entrega push.
	require.Len(t, repo.Outbox, 1)
	assert.Equal(t, domain.SessionCompleted, repo.Outbox[0].EventType)
	assert.Equal(t, session.ID.String(), repo.Outbox[0].AggregateID)
	assert.Equal(t, "user-1", repo.Outbox[0].UserID)

	require.Len(t, tracker.Tracked, 1)
}

func TestCompleteSession_DuplicateIsRejected(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	service := newTestSessionService(repo, nil)

	session, err := service.StartSession(context.Background(), "user-1", "memory-cards")
	require.NoError(t, err)

	in := domain.CompletionInput{Score: 50, Moves: intPtr(14)}
	_, err = service.CompleteSession(context.Background(), session.ID, in)
	require.NoError(t, err)

	// El segundo cierre no vuelve a puntuar ni genera otro evento.
	_, err = service.CompleteSession(context.Background(), session.ID, in)
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyCompleted)
	assert.True(t, IsDuplicateCompletion(err))
	assert.Len(t, repo.Outbox, 1)
}

func TestCompleteSession_TrackerFailureDegradesResult(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	tracker := &mocks.FakeTracker{Err: errors.New("tracker down")}
	service := newTestSessionService(repo, tracker)

	session, err := service.StartSession(context.Background(), "user-1", "balance-blocks")
	require.NoError(t, err)

	result, err := service.CompleteSession(context.Background(), session.ID, domain.CompletionInput{
		Score:       80,
		StackHeight: intPtr(9),
	})
	require.NoError(t, err)

	// El cierre local manda: la sesión queda completada con sus puntos y el
	// fallo del tracker solo degrada el resultado.
	assert.Equal(t, OutcomeDegraded, result.Outcome)
	assert.Equal(t, "session saved but engagement tracking failed", result.Warning)
	assert.False(t, result.Engagement.Tracked)
	assert.Equal(t, 25, result.PointsEarned)
	assert.True(t, result.Session.IsCompleted)
	assert.Len(t, repo.Outbox, 1)
}

func TestCompleteSession_NotFound(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	service := newTestSessionService(repo, nil)

	_, err := service.CompleteSession(context.Background(), uuid.New(), domain.CompletionInput{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCompleteSession_RepoFailureDoesNotTrack(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	repo.FailComplete = errors.New("db down")
	tracker := &mocks.FakeTracker{}
	service := newTestSessionService(repo, tracker)

	session, err := service.StartSession(context.Background(), "user-1", "daily-trivia")
	require.NoError(t, err)

	_, err = service.CompleteSession(context.Background(), session.ID, domain.CompletionInput{Score: 10})
	require.Error(t, err)

	// Si la escritura falla no se notifica nada al tracker.
	assert.Empty(t, tracker.Tracked)
	assert.Empty(t, repo.Outbox)
}

func TestListSessions_FiltersByUser(t *testing.T) {
	repo := mocks.NewInMemorySessionRepo()
	service := newTestSessionService(repo, nil)

	_, err := service.StartSession(context.Background(), "user-1", "daily-trivia")
	require.NoError(t, err)
	_, err = service.StartSession(context.Background(), "user-1", "memory-cards")
	require.NoError(t, err)
	_, err = service.StartSession(context.Background(), "user-2", "daily-trivia")
	require.NoError(t, err)

	list, err := service.ListSessions(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, s := range list {
		assert.Equal(t, "user-1", s.UserID)
	}
}
