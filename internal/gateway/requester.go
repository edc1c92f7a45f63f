package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

var ErrRequestTimeout = errors.New("request timed out waiting for reply")

// Reply es la respuesta publicada por el handler remoto en el topic de
// respuesta. Error solo viene informado cuando Success es false; es la única
// señal de fallo disponible para el solicitante.
type Reply struct {
	CorrelationID string          `json:"correlationId"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Requester emite peticiones correladas sobre el bus y espera la respuesta.
type Requester struct {
	bus     sharedBus.Broker
	origin  string
	timeout time.Duration
	log     *zap.Logger
}

func NewRequester(bus sharedBus.Broker, origin string, timeout time.Duration, log *zap.Logger) *Requester {
	return &Requester{bus: bus, origin: origin, timeout: timeout, log: log}
}

// Request publica el cuerpo en care/request/<op> con un correlation id nuevo
// y espera la primera respuesta en care/response/<op>/<cid>.
//
// La suscripción se establece ANTES de publicar: el handler remoto puede
// responder antes de que volvamos al select. El timeout es obligatorio; el
// broker no ofrece acuse de entrega y sin él la petición quedaría colgada
// para siempre.
func (r *Requester) Request(ctx context.Context, op string, body interface{}) (*Reply, error) {
	correlationID := uuid.New().String()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	replyCh, cancel := r.bus.Subscribe(ReplyTopic(op, correlationID), 1)
	defer cancel()

	env := sharedEvents.Envelope{
		Type:          op + ".request",
		OriginService: r.origin,
		CorrelationID: correlationID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	if err := r.bus.Publish(ctx, RequestTopic(op), env); err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			r.log.Error("⏰ Petición sin respuesta, cancelando",
				zap.String("op", op),
				zap.String("correlation_id", correlationID),
				zap.Duration("timeout", r.timeout),
			)
			return nil, ErrRequestTimeout
		case raw := <-replyCh:
			var reply Reply
			if err := json.Unmarshal(raw, &reply); err != nil {
				r.log.Warn("Respuesta con formato inválido, descartada",
					zap.String("op", op),
					zap.String("correlation_id", correlationID),
					zap.Error(err),
				)
				continue
			}
			// El topic ya está acotado por correlation id, pero si la
			// respuesta lo trae debe coincidir.
			if reply.CorrelationID != "" && reply.CorrelationID != correlationID {
				r.log.Warn("Respuesta con correlation id ajeno, descartada",
					zap.String("expected", correlationID),
					zap.String("got", reply.CorrelationID),
				)
				continue
			}
			return &reply, nil
		}
	}
}
