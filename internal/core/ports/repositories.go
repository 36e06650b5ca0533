package ports

import (
	"context"
	"time"

	"storefront-wallet/internal/core/domain"
)

// StateStore persists one JSON document per (namespace, client).
// Namespaces are independent: wallet, login-streak.
type StateStore interface {
	// Get returns nil, nil when nothing is stored.
	Get(ctx context.Context, namespace, clientID string) ([]byte, error)
	Put(ctx context.Context, namespace, clientID string, payload []byte) error
}

// IdempotencyStore is the append-only registry of processed transaction keys.
type IdempotencyStore interface {
	// Reserve inserts rec if its key is absent. Returns false if the key already exists.
	Reserve(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error)
	// Get returns nil, nil for unknown keys.
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	// MarkApplied upserts rec with status applied.
	MarkApplied(ctx context.Context, rec *domain.IdempotencyRecord) error
	// ListReserved returns reserved records created before olderThan, oldest first.
	ListReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.IdempotencyRecord, error)
}

// NonceStore remembers one-time values for a bounded time.
type NonceStore interface {
	// CheckAndSet atomically records nonce under scope. Returns true if the
	// nonce is new, false if it was already seen within ttl.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}
