package integration

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	deliveryApp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/application"
	deliveryDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/domain"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/gateway"
	infraEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/infra/events"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/relay"
	sessionApp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/application"
	sessionDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	sessionEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/infra/inbound/events"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/relayer"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/tests/mocks"
)

// memAudit y memLedger son soportes mínimos del relay para la prueba de
// tubería completa.
type memAudit struct {
	mu      sync.Mutex
	records []relay.AuditRecord
}

func (a *memAudit) SaveAudit(ctx context.Context, rec relay.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *memAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

type memLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (l *memLedger) MarkIfNew(ctx context.Context, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[messageID] {
		return false, nil
	}
	l.seen[messageID] = true
	return true, nil
}

// TestPipelineIntegration recorre el flujo entero en memoria: una partida se
// abre y se cierra por el gateway, el worker de outbox la saca al bus, el
// relay la reenvía al canal móvil y el worker de push la entrega. Los acuses
// que genera la entrega vuelven por el topic compartido y NO provocan más
// reenvíos.
func TestPipelineIntegration_SessionCompletionReachesDevice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zap.NewNop()

	bus := infraEvents.NewInMemoryBroker()

	// Libro de sesiones detrás del gateway
	sessionRepo := mocks.NewInMemorySessionRepo()
	sessionService := sessionApp.NewSessionService(sessionRepo, sessionDomain.DefaultCatalog(), nil, log)
	responder := gateway.NewResponder(bus, log)
	sessionEvents.RegisterSessionHandlers(responder, sessionService, log)
	responder.Start(ctx)

	// Relay en el topic compartido
	audit := &memAudit{}
	relayConsumer := relay.NewConsumer(audit, &memLedger{}, relay.NewRingBuffer(10), nil, bus, "care-events", log)
	relayCh, cancelRelay := bus.Subscribe("care-events", 16)
	defer cancelRelay()
	infraEvents.BackgroundConsumerChan(ctx, relayCh, relayConsumer, log)

	// Worker de push en el topic del canal móvil
	regs := mocks.NewInMemoryRegistrationRepo()
	require.NoError(t, regs.Create(ctx, &deliveryDomain.DeviceRegistration{
		UserID: "user-1", Token: "tok-1", Platform: "android",
	}))
	primary := &mocks.FakeTransport{TransportName: "primary"}
	pushWorker := deliveryApp.NewPushWorker(regs, primary, nil, mocks.NewInMemoryDeadLetterStore(), bus,
		"care-events", "care-delivery", deliveryApp.Config{}, log)
	pushCh, cancelPush := bus.Subscribe(relay.ChannelTopic("care-events", "mobile"), 16)
	defer cancelPush()
	infraEvents.BackgroundConsumerChan(ctx, pushCh, pushWorker, log)

	// Worker de outbox sobre el mismo repo de sesiones
	outboxWorker := relayer.NewOutboxWorker(sessionRepo, bus, sessionDomain.NewEventRegistry(), nil,
		"care-session", time.Second, 10, log)

	requester := gateway.NewRequester(bus, "care-api", 2*time.Second, log)

	// 1. Abrir la partida por el gateway
	reply, err := requester.Request(ctx, sessionEvents.OpStartSession, map[string]string{
		"userId": "user-1", "gameId": "daily-trivia",
	})
	require.NoError(t, err)
	require.True(t, reply.Success)

	var started sessionDomain.GameSession
	require.NoError(t, json.Unmarshal(reply.Data, &started))

	// 2. Cerrarla con pleno de aciertos
	reply, err = requester.Request(ctx, sessionEvents.OpCompleteSession, map[string]interface{}{
		"sessionId":      started.ID.String(),
		"score":          100,
		"correctAnswers": 10,
		"totalQuestions": 10,
	})
	require.NoError(t, err)
	require.True(t, reply.Success)

	var completion struct {
		PointsEarned int `json:"pointsEarned"`
	}
	require.NoError(t, json.Unmarshal(reply.Data, &completion))
	assert.Equal(t, 30, completion.PointsEarned)

	// 3. El outbox saca el evento al bus y la cadena lo lleva al dispositivo
	outboxWorker.ProcessBatch(ctx)

	require.Eventually(t, func() bool {
		return primary.SentCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "la entrega push nunca llegó")
	assert.Equal(t, "tok-1", primary.LastSent().Token, "la entrega debe ir al dispositivo de user-1")

	// 4. El acuse de la entrega vuelve por el topic compartido: se audita
	// pero no dispara más entregas (evento terminal).
	require.Eventually(t, func() bool {
		return audit.count() >= 2 // el evento de sesión + su acuse
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, primary.SentCount(), "un acuse no debe convertirse en otra entrega")
}
