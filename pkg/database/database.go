// Package database provides the Postgres access layer for document
// records. Vector rows live in the same database but are managed by
// pkg/vectorstore.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/observability"
)

// Common errors
var (
	// ErrNotFound indicates the requested record does not exist. It is
	// surfaced to API callers as a 404, distinct from server faults.
	ErrNotFound = errors.New("record not found")
)

// Database wraps the sqlx connection pool
type Database struct {
	db     *sqlx.DB
	logger observability.Logger
}

// New opens a connection pool against the configured Postgres instance
// and verifies it with a ping.
func New(ctx context.Context, cfg config.DatabaseConfig, logger observability.Logger) (*Database, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database", map[string]interface{}{
		"dsn":      sanitizeDSN(cfg.DSN()),
		"database": cfg.Database,
	})

	return &Database{db: db, logger: logger}, nil
}

// NewFromDB wraps an existing connection. Used by tests with sqlmock.
func NewFromDB(db *sqlx.DB, logger observability.Logger) *Database {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Database{db: db, logger: logger}
}

// DB exposes the underlying pool for collaborating stores
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Ping checks database reachability
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the connection pool
func (d *Database) Close() error {
	return d.db.Close()
}

// sanitizeDSN masks credentials in a DSN for safe logging
func sanitizeDSN(dsn string) string {
	parts := strings.Split(dsn, " ")
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=***"
		}
	}
	return strings.Join(parts, " ")
}
