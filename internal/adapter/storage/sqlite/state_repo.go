package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StateRepo implements ports.StateStore.
type StateRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewStateRepo creates a new StateRepo.
func NewStateRepo(db *sql.DB) *StateRepo {
	return &StateRepo{db: db, now: time.Now}
}

// Get fetches the payload for (namespace, clientID).
func (r *StateRepo) Get(ctx context.Context, namespace, clientID string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM client_state WHERE namespace = ? AND client_id = ?`,
		namespace, clientID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client state: %w", err)
	}
	return payload, nil
}

// Put replaces the payload for (namespace, clientID).
func (r *StateRepo) Put(ctx context.Context, namespace, clientID string, payload []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_state (namespace, client_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, client_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		namespace, clientID, payload, formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("put client state: %w", err)
	}
	return nil
}
