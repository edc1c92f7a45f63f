package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/domain"
	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

const channelName = "mobile"

// Config ajusta el comportamiento del worker de push.
type Config struct {
	// PreSendDelay espera antes de cada envío para esquivar la carrera con
	// registros recién emitidos que el proveedor aún no conoce.
	PreSendDelay time.Duration

	// FallbackEnabled habilita el segundo transporte cuando el primario
	// declara el token inválido.
	FallbackEnabled bool
}

// Counters acumula los resultados de entrega del proceso.
type Counters struct {
	Sent    atomic.Int64
	Failed  atomic.Int64
	Revoked atomic.Int64
}

// PushWorker consume los eventos del canal mobile y los entrega registro a
// registro. Cada registro es independiente: el fallo de uno no bloquea al
// resto del lote.
//
// La revocación es deliberadamente conservadora. "Token inválido" según el
// primario no siempre es cierto, y revocar es destructivo: solo se revoca si
// el fallback está deshabilitado o también falla. Si el fallback entrega, el
// registro sigue activo y la discrepancia queda en el log.
type PushWorker struct {
	registrations domain.RegistrationRepository
	primary       domain.Transport
	fallback      domain.Transport // puede ser nil
	deadLetters   dlDomain.Store
	publisher     sharedBus.EventPublisher
	eventsTopic   string
	origin        string
	cfg           Config
	counters      Counters
	log           *zap.Logger
}

func NewPushWorker(
	registrations domain.RegistrationRepository,
	primary domain.Transport,
	fallback domain.Transport,
	deadLetters dlDomain.Store,
	publisher sharedBus.EventPublisher,
	eventsTopic string,
	origin string,
	cfg Config,
	log *zap.Logger,
) *PushWorker {
	return &PushWorker{
		registrations: registrations,
		primary:       primary,
		fallback:      fallback,
		deadLetters:   deadLetters,
		publisher:     publisher,
		eventsTopic:   eventsTopic,
		origin:        origin,
		cfg:           cfg,
		log:           log,
	}
}

// Counters expone los contadores del proceso (solo lectura razonable).
func (w *PushWorker) Counters() *Counters {
	return &w.counters
}

func (w *PushWorker) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil || env.Type == "" {
		w.log.Warn("Evento malformado descartado", zap.Error(err))
		return
	}

	// Un acuse que se cuele por el topic del canal tampoco es trabajo.
	if sharedEvents.Terminal(env.Type) {
		return
	}
	if len(env.Target) > 0 && !env.Targets(channelName) {
		return
	}
	if env.UserID == "" {
		w.log.Warn("Evento de push sin userId, descartado", zap.String("type", env.Type))
		return
	}

	regs, err := w.registrations.ListActiveByUser(ctx, env.UserID)
	if err != nil {
		w.log.Error("No se pudieron cargar los registros del usuario",
			zap.String("user_id", env.UserID), zap.Error(err))
		return
	}
	if len(regs) == 0 {
		w.log.Info("Usuario sin dispositivos activos", zap.String("user_id", env.UserID))
		return
	}

	msgBody := buildBody(env)
	for _, reg := range regs {
		w.deliverTo(ctx, env, reg, msgBody)
	}
}

func (w *PushWorker) deliverTo(ctx context.Context, env sharedEvents.Envelope, reg *domain.DeviceRegistration, body string) {
	msg := domain.Message{Token: reg.Token, Body: body}

	if w.cfg.PreSendDelay > 0 {
		select {
		case <-time.After(w.cfg.PreSendDelay):
		case <-ctx.Done():
			return
		}
	}

	err := w.primary.Send(ctx, msg)
	if err == nil {
		w.counters.Sent.Add(1)
		if err := w.registrations.UpdateLastSeen(ctx, reg.Token, time.Now().UTC()); err != nil {
			w.log.Warn("⚠️ No se pudo sellar lastSeenAt", zap.String("token", reg.Token), zap.Error(err))
		}
		w.announce(ctx, env, sharedEvents.ChannelSendSucceeded, "")
		return
	}

	w.counters.Failed.Add(1)

	if !errors.Is(err, domain.ErrRegistrationInvalid) {
		// Fallo transitorio: se anota y se deja en paz, el siguiente evento
		// volverá a intentarlo.
		w.log.Warn("Entrega push fallida (transitorio)",
			zap.String("token", reg.Token),
			zap.String("transport", w.primary.Name()),
			zap.Error(err),
		)
		w.announce(ctx, env, sharedEvents.ChannelSendFailed, err.Error())
		return
	}

	// Fallo permanente según el primario: contraste con el fallback antes
	// de dar el token por muerto.
	if w.cfg.FallbackEnabled && w.fallback != nil {
		if fbErr := w.fallback.Send(ctx, msg); fbErr == nil {
			w.counters.Sent.Add(1)
			w.log.Warn("🤔 Primario declaró el token inválido pero el fallback entregó; el registro sigue activo",
				zap.String("token", reg.Token),
				zap.String("primary", w.primary.Name()),
				zap.String("fallback", w.fallback.Name()),
			)
			if err := w.registrations.UpdateLastSeen(ctx, reg.Token, time.Now().UTC()); err != nil {
				w.log.Warn("⚠️ No se pudo sellar lastSeenAt", zap.String("token", reg.Token), zap.Error(err))
			}
			w.announce(ctx, env, sharedEvents.ChannelSendSucceeded, "")
			return
		}
	}

	w.revokeAndDeadLetter(ctx, env, reg, err)
}

func (w *PushWorker) revokeAndDeadLetter(ctx context.Context, env sharedEvents.Envelope, reg *domain.DeviceRegistration, cause error) {
	if err := w.registrations.Revoke(ctx, reg.Token); err != nil {
		w.log.Error("No se pudo revocar el registro", zap.String("token", reg.Token), zap.Error(err))
	} else {
		w.counters.Revoked.Add(1)
		w.log.Info("🚫 Registro revocado", zap.String("token", reg.Token), zap.String("user_id", reg.UserID))
	}

	raw, _ := json.Marshal(env)
	rec := dlDomain.New(channelName, raw, cause.Error())
	if err := w.deadLetters.Append(ctx, rec); err != nil {
		w.log.Error("No se pudo anexar a cartas muertas", zap.Error(err))
	}
	w.announce(ctx, env, sharedEvents.ChannelSendFailed, cause.Error())
}

// announce publica el acuse de envío en el topic compartido. El relay lo
// auditará pero no lo reenviará: es un tipo terminal.
func (w *PushWorker) announce(ctx context.Context, env sharedEvents.Envelope, eventType, reason string) {
	payload, _ := json.Marshal(map[string]string{
		"sourceType": env.Type,
		"reason":     reason,
	})
	ack := sharedEvents.Envelope{
		Type:          eventType,
		OriginService: w.origin,
		CorrelationID: env.CorrelationID,
		UserID:        env.UserID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}
	if err := w.publisher.Publish(ctx, w.eventsTopic, ack); err != nil {
		w.log.Warn("⚠️ No se pudo publicar el acuse", zap.String("type", eventType), zap.Error(err))
	}
}

func buildBody(env sharedEvents.Envelope) string {
	var payload struct {
		Body    string `json:"body"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(env.Payload, &payload)
	if payload.Body != "" {
		return payload.Body
	}
	if payload.Message != "" {
		return payload.Message
	}
	return env.Type
}
