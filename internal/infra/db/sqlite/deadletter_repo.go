package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
)

// DeadLetterRepoSQLite implementa dlDomain.Store para despliegues locales.
type DeadLetterRepoSQLite struct {
	db *sql.DB
}

func NewDeadLetterRepoSQLite(db *sql.DB) *DeadLetterRepoSQLite {
	return &DeadLetterRepoSQLite{db: db}
}

// InitSQLite crea la tabla si no existe.
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS dead_letters (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		original_message BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	return err
}

func (r *DeadLetterRepoSQLite) Append(ctx context.Context, rec dlDomain.Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dead_letters (id, channel, original_message, error_reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Channel, rec.OriginalMessage, rec.ErrorReason, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *DeadLetterRepoSQLite) List(ctx context.Context, channel string, limit int) ([]dlDomain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, channel, original_message, error_reason, created_at
		 FROM dead_letters
		 WHERE channel = ?
		 ORDER BY created_at DESC
		 LIMIT ?`, channel, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []dlDomain.Record
	for rows.Next() {
		var rec dlDomain.Record
		var idStr string
		if err := rows.Scan(&idStr, &rec.Channel, &rec.OriginalMessage, &rec.ErrorReason, &rec.Timestamp); err != nil {
			return nil, err
		}
		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in dead_letters row: %w", err)
		}
		rec.ID = parsedID
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Verificación en tiempo de compilación.
var _ dlDomain.Store = (*DeadLetterRepoSQLite)(nil)
