// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"driver-application/internal/common/config"

	_ "github.com/lib/pq"
)

// schema is applied on startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS driver_applications (
		id            UUID PRIMARY KEY,
		status        TEXT NOT NULL DEFAULT 'draft',
		current_step  SMALLINT NOT NULL DEFAULT 1,
		email         TEXT,
		data          JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		submitted_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_driver_applications_status ON driver_applications (status)`,
	`CREATE TABLE IF NOT EXISTS license_images (
		application_id UUID NOT NULL REFERENCES driver_applications (id) ON DELETE CASCADE,
		side           TEXT NOT NULL CHECK (side IN ('front', 'back')),
		content_type   TEXT NOT NULL,
		body           BYTEA NOT NULL,
		uploaded_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (application_id, side)
	)`,
}

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate creates the application tables when they do not exist yet.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
