package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/tests/mocks"
)

// fakeAudit acumula las copias de auditoría.
type fakeAudit struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (a *fakeAudit) SaveAudit(ctx context.Context, rec AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

// fakeLedger implementa ProcessedLedger en memoria.
type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: make(map[string]bool)}
}

func (l *fakeLedger) MarkIfNew(ctx context.Context, messageID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen[messageID] {
		return false, nil
	}
	l.seen[messageID] = true
	return true, nil
}

func newTestConsumer(publisher *mocks.CapturingPublisher) (*Consumer, *fakeAudit, *fakeLedger, *RingBuffer) {
	audit := &fakeAudit{}
	ledger := newFakeLedger()
	ring := NewRingBuffer(10)
	c := NewConsumer(audit, ledger, ring, nil, publisher, "care-events", zap.NewNop())
	return c, audit, ledger, ring
}

func marshalEnvelope(t *testing.T, env sharedEvents.Envelope) []byte {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func TestConsumer_ForwardsCommandToChannelTopics(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	consumer, audit, _, ring := newTestConsumer(publisher)

	env := sharedEvents.Envelope{
		Type:          sharedEvents.SessionCompleted,
		CorrelationID: "cid-1",
		UserID:        "user-1",
		Target:        []string{"mobile"},
		Timestamp:     time.Now().UTC(),
	}
	consumer.HandleMessage(context.Background(), "user-1", marshalEnvelope(t, env))

	forwarded := publisher.ByTopic("care-events.mobile")
	require.Len(t, forwarded, 1)

	var out sharedEvents.Envelope
	require.NoError(t, json.Unmarshal(forwarded[0].Payload, &out))
	assert.Equal(t, sharedEvents.SessionCompleted, out.Type)
	assert.Equal(t, "user-1", out.UserID)

	assert.Len(t, audit.records, 1)
	assert.Equal(t, 1, ring.Len())
}

func TestConsumer_AcknowledgmentsNeverReemitted(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	consumer, audit, _, _ := newTestConsumer(publisher)

	// Una tanda de acuses y fallos: se auditan todos, no se reenvía ninguno.
	// Sin este filtro un "mensaje enviado" se releería como "envía un
	// mensaje" y el ciclo no acabaría.
	terminals := []string{
		sharedEvents.ChannelSendSucceeded,
		sharedEvents.ChannelSendFailed,
		sharedEvents.ChannelReceipt,
	}
	for i, eventType := range terminals {
		env := sharedEvents.Envelope{
			Type:          eventType,
			CorrelationID: "cid-" + string(rune('a'+i)),
			Target:        []string{"mobile"},
			Timestamp:     time.Now().UTC(),
		}
		consumer.HandleMessage(context.Background(), "", marshalEnvelope(t, env))
	}

	assert.Empty(t, publisher.Messages)
	assert.Len(t, audit.records, len(terminals))
}

func TestConsumer_MalformedPayloadDropped(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	consumer, audit, ledger, ring := newTestConsumer(publisher)

	consumer.HandleMessage(context.Background(), "", []byte("{esto no es json"))
	consumer.HandleMessage(context.Background(), "", []byte(`{"userId":"u1"}`)) // sin type

	assert.Empty(t, publisher.Messages)
	assert.Empty(t, audit.records)
	assert.Empty(t, ledger.seen)
	assert.Equal(t, 0, ring.Len())
}

func TestConsumer_DuplicateDeliveryIgnored(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	consumer, audit, _, _ := newTestConsumer(publisher)

	env := sharedEvents.Envelope{
		Type:          sharedEvents.SessionCompleted,
		CorrelationID: "cid-dup",
		UserID:        "user-1",
		Target:        []string{"mobile"},
		Timestamp:     time.Now().UTC(),
	}
	raw := marshalEnvelope(t, env)

	// El broker puede entregar el mismo mensaje dos veces; el ledger lo
	// absorbe y el efecto es uno solo.
	consumer.HandleMessage(context.Background(), "user-1", raw)
	consumer.HandleMessage(context.Background(), "user-1", raw)

	assert.Len(t, publisher.ByTopic("care-events.mobile"), 1)
	assert.Len(t, audit.records, 1)
}

func TestConsumer_AcknowledgmentWithSameCorrelationIDIsAudited(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	consumer, audit, _, _ := newTestConsumer(publisher)

	// El acuse hereda el correlation id de la orden que lo originó; si el
	// ledger usara el cid a secas lo tragaría como duplicado y el acuse
	// jamás quedaría auditado.
	command := sharedEvents.Envelope{
		Type:          sharedEvents.SessionCompleted,
		CorrelationID: "cid-X",
		UserID:        "user-1",
		Target:        []string{"mobile"},
		Timestamp:     time.Now().UTC(),
	}
	ack := sharedEvents.Envelope{
		Type:          sharedEvents.ChannelSendSucceeded,
		CorrelationID: "cid-X",
		UserID:        "user-1",
		Timestamp:     time.Now().UTC(),
	}
	consumer.HandleMessage(context.Background(), "user-1", marshalEnvelope(t, command))
	consumer.HandleMessage(context.Background(), "user-1", marshalEnvelope(t, ack))

	require.Len(t, audit.records, 2)
	assert.Equal(t, sharedEvents.SessionCompleted, audit.records[0].EventType)
	assert.Equal(t, sharedEvents.ChannelSendSucceeded, audit.records[1].EventType)

	// La orden se reenvía una vez; el acuse es terminal y no se reenvía.
	assert.Len(t, publisher.ByTopic("care-events.mobile"), 1)
}

func TestConsumer_HashIdentityWithoutCorrelationID(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	consumer, audit, _, _ := newTestConsumer(publisher)

	// Sin correlation id la identidad es el hash del payload: el mismo
	// payload repetido sigue siendo un duplicado.
	env := sharedEvents.Envelope{
		Type:   sharedEvents.SessionCompleted,
		UserID: "user-2",
		Target: []string{"mobile"},
	}
	raw := marshalEnvelope(t, env)
	consumer.HandleMessage(context.Background(), "", raw)
	consumer.HandleMessage(context.Background(), "", raw)

	assert.Len(t, audit.records, 1)
	assert.Len(t, publisher.ByTopic("care-events.mobile"), 1)
}

func TestConsumer_LedgerFailureDoesNotBlock(t *testing.T) {
	publisher := &mocks.CapturingPublisher{}
	audit := &fakeAudit{}
	ledger := newFakeLedger()
	ledger.err = assert.AnError
	consumer := NewConsumer(audit, ledger, NewRingBuffer(10), nil, publisher, "care-events", zap.NewNop())

	// Si el ledger no responde se sigue adelante: mejor un posible
	// duplicado que parar el fan-out.
	env := sharedEvents.Envelope{
		Type:   sharedEvents.SessionCompleted,
		UserID: "user-3",
		Target: []string{"mobile"},
	}
	consumer.HandleMessage(context.Background(), "", marshalEnvelope(t, env))

	assert.Len(t, publisher.ByTopic("care-events.mobile"), 1)
	assert.Len(t, audit.records, 1)
}

func TestChannelTopic(t *testing.T) {
	assert.Equal(t, "care-events.mobile", ChannelTopic("care-events", "mobile"))
}
