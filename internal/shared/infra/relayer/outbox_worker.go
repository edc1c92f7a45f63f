package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
	sharedDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain"
	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// Worker publica los eventos pendientes de la tabla outbox de forma genérica.
// Un fallo de publicación deja la fila pendiente y se reintenta en el
// siguiente ciclo; una fila indescifrable va al registro de cartas muertas
// para no envenenar el bucle.
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publisher     sharedBus.EventPublisher
	eventRegistry map[string]sharedEvents.EventMetadata
	deadLetters   dlDomain.Store
	origin        string
	interval      time.Duration
	batchSize     int
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	registry map[string]sharedEvents.EventMetadata,
	deadLetters dlDomain.Store,
	origin string,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publisher:     publisher,
		eventRegistry: registry,
		deadLetters:   deadLetters,
		origin:        origin,
		interval:      interval,
		batchSize:     batchSize,
		log:           log,
	}
}

// Start inicia el bucle de polling del worker.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info("🚀 Outbox worker iniciado", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ctx.Done():
				w.log.Info("🛑 Outbox worker detenido.")
				return
			case <-ticker.C:
				w.ProcessBatch(ctx)
			}
		}
	}()
}

func (w *Worker) ProcessBatch(ctx context.Context) {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return
	}
	if len(events) > 0 {
		w.log.Info(fmt.Sprintf("📬 %d eventos encontrados para procesar", len(events)))
	}

	for _, evt := range events {
		w.publishAndMark(ctx, evt)
	}
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) {
	metadata, ok := w.eventRegistry[evt.EventType]
	if !ok {
		w.log.Error("Tipo de evento desconocido en registro", zap.String("event_type", evt.EventType))
		w.toDeadLetters(ctx, evt, "event type not in registry")
		return
	}

	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		w.log.Error("Error al serializar payload del evento",
			zap.String("event_id", evt.ID.String()), zap.Error(err))
		w.toDeadLetters(ctx, evt, "unserializable payload: "+err.Error())
		return
	}

	// El evento sale al bus envuelto en el sobre de integración; los
	// consumidores deciden con Type y Target qué hacer con él.
	env := sharedEvents.Envelope{
		Type:          evt.EventType,
		OriginService: w.origin,
		UserID:        evt.UserID,
		Target:        metadata.Target,
		Payload:       payloadBytes,
		Timestamp:     time.Now().UTC(),
	}

	if err := w.publisher.Publish(ctx, metadata.Topic, env); err != nil {
		w.log.Warn("⚠️ No se pudo publicar evento",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return // No lo marcamos como procesado para que se reintente
	}

	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento como procesado",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
	} else {
		w.log.Info("✅ Evento publicado y marcado", zap.String("event_id", evt.ID.String()))
	}
}

func (w *Worker) toDeadLetters(ctx context.Context, evt sharedDomain.OutboxEvent, reason string) {
	if w.deadLetters == nil {
		return
	}
	raw, _ := json.Marshal(evt)
	if err := w.deadLetters.Append(ctx, dlDomain.New("outbox", raw, reason)); err != nil {
		w.log.Error("No se pudo anexar a cartas muertas",
			zap.String("event_id", evt.ID.String()), zap.Error(err))
		return
	}
	// Una vez preservado el original, la fila se marca para no reintentarla.
	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento tras enviarlo a cartas muertas",
			zap.String("event_id", evt.ID.String()), zap.Error(err))
	}
}
