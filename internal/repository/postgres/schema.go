package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS batch_runs (
		id           UUID PRIMARY KEY,
		mode         TEXT NOT NULL,
		task         TEXT NOT NULL DEFAULT '',
		pathway_id   TEXT NOT NULL DEFAULT '',
		total_items  INTEGER NOT NULL,
		succeeded    INTEGER NOT NULL DEFAULT 0,
		failed       INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS batch_results (
		batch_id     UUID NOT NULL REFERENCES batch_runs (id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		phone_number TEXT NOT NULL,
		status       TEXT NOT NULL,
		call_id      TEXT NOT NULL DEFAULT '',
		message      TEXT NOT NULL DEFAULT '',
		payload      JSONB,
		recorded_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (batch_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS batch_results_call_id_idx ON batch_results (call_id) WHERE call_id <> ''`,
}

// EnsureSchema creates the batch tables when they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}
