package gateway

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// HandlerFunc procesa el cuerpo de una petición y devuelve el resultado
// serializable a JSON.
type HandlerFunc func(ctx context.Context, env sharedEvents.Envelope) (interface{}, error)

// Responder atiende el topic de petición de una operación y publica el
// resultado en el topic de respuesta derivado del correlation id.
// El handler no necesita saber nada del solicitante más allá de ese id.
type Responder struct {
	bus sharedBus.Broker
	log *zap.Logger

	handlers map[string]HandlerFunc
}

func NewResponder(bus sharedBus.Broker, log *zap.Logger) *Responder {
	return &Responder{
		bus:      bus,
		log:      log,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registra el handler de una operación. Debe llamarse antes de Start.
func (r *Responder) Handle(op string, fn HandlerFunc) {
	r.handlers[op] = fn
}

// Start suscribe cada operación registrada a su topic de petición.
func (r *Responder) Start(ctx context.Context) {
	for op, fn := range r.handlers {
		ch, cancel := r.bus.Subscribe(RequestTopic(op), 16)
		go r.serve(ctx, op, fn, ch, cancel)
	}
}

func (r *Responder) serve(ctx context.Context, op string, fn HandlerFunc, ch <-chan []byte, cancel func()) {
	defer cancel()
	r.log.Info("🎧 Atendiendo operación", zap.String("topic", RequestTopic(op)))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Responder detenido", zap.String("op", op))
			return
		case raw := <-ch:
			r.dispatch(ctx, op, fn, raw)
		}
	}
}

func (r *Responder) dispatch(ctx context.Context, op string, fn HandlerFunc, raw []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Warn("Petición con formato inválido, descartada", zap.String("op", op), zap.Error(err))
		return
	}
	if env.CorrelationID == "" {
		r.log.Warn("Petición sin correlation id, no hay donde responder", zap.String("op", op))
		return
	}

	reply := Reply{CorrelationID: env.CorrelationID}

	result, err := fn(ctx, env)
	if err != nil {
		// El error viaja por el topic de respuesta: es la única señal que
		// tiene el solicitante para no agotar su timeout.
		reply.Success = false
		reply.Error = err.Error()
	} else {
		data, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			reply.Success = false
			reply.Error = marshalErr.Error()
		} else {
			reply.Success = true
			reply.Data = data
		}
	}

	if err := r.bus.Publish(ctx, ReplyTopic(op, env.CorrelationID), reply); err != nil {
		r.log.Error("No se pudo publicar la respuesta",
			zap.String("op", op),
			zap.String("correlation_id", env.CorrelationID),
			zap.Error(err),
		)
	}
}
