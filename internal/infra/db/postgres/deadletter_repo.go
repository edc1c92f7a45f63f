package postgres

import (
	"context"
	"database/sql"
	"fmt"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
)

// DeadLetterRepoPostgres implementa dlDomain.Store sobre Postgres.
type DeadLetterRepoPostgres struct {
	db *sql.DB
}

func NewDeadLetterRepoPostgres(db *sql.DB) *DeadLetterRepoPostgres {
	return &DeadLetterRepoPostgres{db: db}
}

func (r *DeadLetterRepoPostgres) Append(ctx context.Context, rec dlDomain.Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, channel, original_message, error_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Channel, rec.OriginalMessage, rec.ErrorReason, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *DeadLetterRepoPostgres) List(ctx context.Context, channel string, limit int) ([]dlDomain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, channel, original_message, error_reason, created_at
		 FROM dead_letters WHERE channel = $1 ORDER BY created_at DESC LIMIT $2`,
		channel, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []dlDomain.Record
	for rows.Next() {
		var rec dlDomain.Record
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.OriginalMessage, &rec.ErrorReason, &rec.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Verificación en tiempo de compilación.
var _ dlDomain.Store = (*DeadLetterRepoPostgres)(nil)
