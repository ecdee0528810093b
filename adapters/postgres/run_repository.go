// Package postgres persists comparison runs in a Postgres database.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"macrosad/app"
)

const schema = `
CREATE TABLE IF NOT EXISTS comparison_runs (
    id         UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    models     TEXT[] NOT NULL,
    null_model TEXT,
    result     JSONB NOT NULL
);`

// RunRepository stores run records in the comparison_runs table.
type RunRepository struct {
	db *sqlx.DB
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*RunRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Printf("[Postgres] connected")
	return &RunRepository{db: db}, nil
}

// NewRunRepository wraps an existing connection pool.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema creates the runs table when it does not exist.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveRun inserts one run record. The full result payload is stored as JSONB
// so queries can reach into per-model statistics without a wide schema.
func (r *RunRepository) SaveRun(ctx context.Context, rec app.RunRecord) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", rec.ID, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
        INSERT INTO comparison_runs (id, created_at, models, null_model, result)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5)`
	if _, err := tx.ExecContext(ctx, insert,
		rec.ID, rec.CreatedAt, pq.Array(rec.Models), rec.NullModel, payload); err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", rec.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *RunRepository) Close() error {
	return r.db.Close()
}
