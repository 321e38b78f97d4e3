package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DB wraps a database/sql connection pool for PostgreSQL.
type DB struct {
	Pool *sql.DB
}

// New creates a new database connection.
// The caller must import a PostgreSQL driver (e.g., _ "github.com/lib/pq").
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs the database schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS automations (
    id             TEXT PRIMARY KEY,
    deployment_id  TEXT NOT NULL,
    name           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    enabled        BOOLEAN NOT NULL DEFAULT TRUE,
    trigger        JSONB NOT NULL,
    conditions     JSONB NOT NULL DEFAULT '[]',
    actions        JSONB NOT NULL DEFAULT '[]',
    rate_limit     JSONB NOT NULL DEFAULT '{}',
    run_count      INTEGER NOT NULL DEFAULT 0,
    error_count    INTEGER NOT NULL DEFAULT 0,
    last_run       TIMESTAMPTZ,
    next_run       TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_automations_deployment_id ON automations(deployment_id);

CREATE TABLE IF NOT EXISTS automation_runs (
    id                TEXT PRIMARY KEY,
    automation_id     TEXT NOT NULL,
    deployment_id     TEXT NOT NULL,
    timestamp         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    status            TEXT NOT NULL,
    trigger_type      TEXT NOT NULL,
    trigger_data      JSONB NOT NULL DEFAULT '{}',
    condition_results JSONB NOT NULL DEFAULT '[]',
    actions_executed  JSONB NOT NULL DEFAULT '[]',
    error             TEXT NOT NULL DEFAULT '',
    duration_ms       BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_automation_runs_deployment_id ON automation_runs(deployment_id);
CREATE INDEX IF NOT EXISTS idx_automation_runs_automation_id ON automation_runs(automation_id);

CREATE TABLE IF NOT EXISTS tool_states (
    deployment_id  TEXT PRIMARY KEY,
    state          JSONB NOT NULL DEFAULT '{}',
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
