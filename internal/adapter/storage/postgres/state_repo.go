package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// StateRepo implements ports.StateStore.
type StateRepo struct {
	pool Pool
	now  func() time.Time
}

// NewStateRepo creates a new StateRepo.
func NewStateRepo(pool Pool) *StateRepo {
	return &StateRepo{pool: pool, now: time.Now}
}

// Get fetches the payload for (namespace, clientID).
func (r *StateRepo) Get(ctx context.Context, namespace, clientID string) ([]byte, error) {
	query := `SELECT payload FROM client_state WHERE namespace = $1 AND client_id = $2`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, namespace, clientID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client state: %w", err)
	}
	return payload, nil
}

// Put replaces the payload for (namespace, clientID).
func (r *StateRepo) Put(ctx context.Context, namespace, clientID string, payload []byte) error {
	query := `INSERT INTO client_state (namespace, client_id, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, client_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, namespace, clientID, payload, r.now().UTC())
	if err != nil {
		return fmt.Errorf("put client state: %w", err)
	}
	return nil
}
