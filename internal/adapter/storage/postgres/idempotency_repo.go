package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const idempotencyColumns = `key, client_id, identifier, kind, source, amount, status, created_at, updated_at`

// IdempotencyRepo implements ports.IdempotencyStore.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Reserve inserts rec unless its key exists.
func (r *IdempotencyRepo) Reserve(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	query := `INSERT INTO idempotency_keys (` + idempotencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (key) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		rec.Key, rec.ClientID, rec.Identifier, string(rec.Kind), rec.Source, rec.Amount,
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches a record by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE key = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return rec, nil
}

// MarkApplied upserts rec as applied, keeping the original created_at.
func (r *IdempotencyRepo) MarkApplied(ctx context.Context, rec *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_keys (` + idempotencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, 'applied', $7, $8)
		ON CONFLICT (key) DO UPDATE SET status = 'applied', updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		rec.Key, rec.ClientID, rec.Identifier, string(rec.Kind), rec.Source, rec.Amount,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mark idempotency key applied: %w", err)
	}
	return nil
}

// ListReserved returns the oldest reservations created before olderThan.
func (r *IdempotencyRepo) ListReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.IdempotencyRecord, error) {
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_keys
		WHERE status = 'reserved' AND created_at < $1
		ORDER BY created_at LIMIT $2`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list reserved keys: %w", err)
	}
	defer rows.Close()

	var out []domain.IdempotencyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reserved key: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.IdempotencyRecord, error) {
	var (
		rec          domain.IdempotencyRecord
		kind, status string
	)
	err := row.Scan(&rec.Key, &rec.ClientID, &rec.Identifier, &kind, &rec.Source, &rec.Amount,
		&status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Kind = domain.MutationKind(kind)
	rec.Status = domain.IdempotencyStatus(status)
	return &rec, nil
}
