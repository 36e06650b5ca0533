package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront-wallet/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyStore implements ports.IdempotencyStore using Redis.
// Records are JSON values without TTL; reserved keys are also indexed in a
// sorted set scored by creation time so the sweep can find them.
type IdempotencyStore struct {
	client      *goredis.Client
	prefix      string
	reservedKey string
}

// NewIdempotencyStore creates a new Redis-backed idempotency registry.
func NewIdempotencyStore(client *goredis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client:      client,
		prefix:      "idempotency:",
		reservedKey: "idempotency:reserved",
	}
}

// Reserve stores rec with SET NX. Returns false if the key already exists.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	val, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("redis idempotency encode: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.prefix+rec.Key, val, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis idempotency reserve: %w", err)
	}
	if !ok {
		return false, nil
	}

	if rec.Status != domain.IdempotencyApplied {
		err = s.client.ZAdd(ctx, s.reservedKey, goredis.Z{
			Score:  float64(rec.CreatedAt.UnixNano()),
			Member: rec.Key,
		}).Err()
		if err != nil {
			return true, fmt.Errorf("redis idempotency index: %w", err)
		}
	}
	return true, nil
}

// Get retrieves a record by key.
// Returns nil, nil if the key does not exist.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}

	var rec domain.IdempotencyRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("redis idempotency decode: %w", err)
	}
	return &rec, nil
}

// MarkApplied upserts rec as applied and drops it from the reserved index.
func (s *IdempotencyStore) MarkApplied(ctx context.Context, rec *domain.IdempotencyRecord) error {
	applied := *rec
	applied.Status = domain.IdempotencyApplied

	existing, err := s.Get(ctx, rec.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		applied.CreatedAt = existing.CreatedAt
	}

	val, err := json.Marshal(&applied)
	if err != nil {
		return fmt.Errorf("redis idempotency encode: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.prefix+rec.Key, val, 0)
	pipe.ZRem(ctx, s.reservedKey, rec.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis idempotency mark applied: %w", err)
	}
	return nil
}

// ListReserved returns reserved records created before olderThan, oldest first.
func (s *IdempotencyStore) ListReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.IdempotencyRecord, error) {
	keys, err := s.client.ZRangeByScore(ctx, s.reservedKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(olderThan.UnixNano(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis idempotency list reserved: %w", err)
	}

	out := make([]domain.IdempotencyRecord, 0, len(keys))
	for _, key := range keys {
		rec, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.IsApplied() {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}
