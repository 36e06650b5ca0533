// Package sqlite is the default local store: one WAL-mode database file holding
// client state documents and the idempotency registry.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log zerolog.Logger) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite store opened")
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS client_state (
		namespace TEXT NOT NULL,
		client_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, client_id)
	);

	CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_idempotency_keys_reserved
		ON idempotency_keys (status, created_at);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// HealthCheck implements ports.HealthChecker for SQLite.
type HealthCheck struct {
	db *sql.DB
}

// NewHealthCheck creates a SQLite health checker.
func NewHealthCheck(db *sql.DB) *HealthCheck {
	return &HealthCheck{db: db}
}

// Ping checks the database file is usable.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "sqlite"
}
