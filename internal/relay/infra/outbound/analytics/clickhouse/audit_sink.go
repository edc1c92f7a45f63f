package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/relay"
)

// AuditSink acumula copias de auditoría y las vuelca a ClickHouse por lotes.
// ClickHouse funciona mejor con inserciones en lotes, así que Append solo
// encola y el volcado ocurre en el ticker o al llenarse el lote.
type AuditSink struct {
	db        *sql.DB
	mu        sync.Mutex
	pending   []relay.AuditRecord
	batchSize int
	interval  time.Duration
	log       *zap.Logger
}

func NewAuditSink(addr, dbName string, batchSize int, interval time.Duration, log *zap.Logger) (*AuditSink, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &AuditSink{
		db:        conn,
		batchSize: batchSize,
		interval:  interval,
		log:       log,
	}, nil
}

func (s *AuditSink) Append(ctx context.Context, rec relay.AuditRecord) error {
	s.mu.Lock()
	s.pending = append(s.pending, rec)
	flushNow := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if flushNow {
		return s.Flush(ctx)
	}
	return nil
}

// Start vuelca periódicamente lo pendiente hasta que el contexto se cancele.
func (s *AuditSink) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Último volcado antes de salir.
				if err := s.Flush(context.Background()); err != nil {
					s.log.Warn("⚠️ Volcado final a ClickHouse falló", zap.Error(err))
				}
				return
			case <-ticker.C:
				if err := s.Flush(ctx); err != nil {
					s.log.Warn("⚠️ Volcado a ClickHouse falló", zap.Error(err))
				}
			}
		}
	}()
}

// Flush inserta el lote pendiente en una transacción.
func (s *AuditSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO event_audit_log (id, message_id, event_type, user_id, received_at)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range batch {
		if _, err := stmt.ExecContext(
			ctx,
			rec.ID,
			rec.MessageID,
			rec.EventType,
			rec.UserID,
			rec.ReceivedAt,
		); err != nil {
			// Si un registro falla, hacemos rollback de todo el lote.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for audit %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

var _ relay.AnalyticsSink = (*AuditSink)(nil)
