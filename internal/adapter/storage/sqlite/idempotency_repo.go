package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-wallet/internal/core/domain"
)

const idempotencyColumns = `key, client_id, identifier, kind, source, amount, status, created_at, updated_at`

// IdempotencyRepo implements ports.IdempotencyStore.
type IdempotencyRepo struct {
	db *sql.DB
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(db *sql.DB) *IdempotencyRepo {
	return &IdempotencyRepo{db: db}
}

// Reserve inserts rec unless its key exists.
func (r *IdempotencyRepo) Reserve(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (`+idempotencyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO NOTHING`,
		rec.Key, rec.ClientID, rec.Identifier, string(rec.Kind), rec.Source, rec.Amount,
		string(rec.Status), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return n == 1, nil
}

// Get fetches a record by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+idempotencyColumns+` FROM idempotency_keys WHERE key = ?`, key)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return rec, nil
}

// MarkApplied upserts rec as applied, keeping the original created_at.
func (r *IdempotencyRepo) MarkApplied(ctx context.Context, rec *domain.IdempotencyRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (`+idempotencyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 'applied', ?, ?)
		ON CONFLICT (key) DO UPDATE SET status = 'applied', updated_at = excluded.updated_at`,
		rec.Key, rec.ClientID, rec.Identifier, string(rec.Kind), rec.Source, rec.Amount,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("mark idempotency key applied: %w", err)
	}
	return nil
}

// ListReserved returns the oldest reservations created before olderThan.
func (r *IdempotencyRepo) ListReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.IdempotencyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+idempotencyColumns+` FROM idempotency_keys
		WHERE status = 'reserved' AND created_at < ?
		ORDER BY created_at LIMIT ?`,
		formatTime(olderThan), limit,
	)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.IdempotencyRecord, error) {
	var (
		rec                  domain.IdempotencyRecord
		kind, status         string
		createdAt, updatedAt string
	)
	if err := s.Scan(&rec.Key, &rec.ClientID, &rec.Identifier, &kind, &rec.Source, &rec.Amount,
		&status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Kind = domain.MutationKind(kind)
	rec.Status = domain.IdempotencyStatus(status)
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}
