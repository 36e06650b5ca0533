// Package memory holds process-local stores for tests and single-run deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-wallet/internal/core/domain"
)

// StateStore implements ports.StateStore with a map.
type StateStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{data: make(map[string][]byte)}
}

func stateKey(namespace, clientID string) string {
	return namespace + "/" + clientID
}

// Get returns a copy of the stored payload, or nil.
func (s *StateStore) Get(_ context.Context, namespace, clientID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[stateKey(namespace, clientID)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of payload.
func (s *StateStore) Put(_ context.Context, namespace, clientID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[stateKey(namespace, clientID)] = append([]byte(nil), payload...)
	return nil
}

// IdempotencyStore implements ports.IdempotencyStore with a map.
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]domain.IdempotencyRecord
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]domain.IdempotencyRecord)}
}

func (s *IdempotencyStore) Reserve(_ context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Key]; exists {
		return false, nil
	}
	s.records[rec.Key] = *rec
	return true, nil
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *IdempotencyStore) MarkApplied(_ context.Context, rec *domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[rec.Key]
	if !ok {
		stored = *rec
	}
	stored.Status = domain.IdempotencyApplied
	stored.UpdatedAt = rec.UpdatedAt
	s.records[rec.Key] = stored
	return nil
}

func (s *IdempotencyStore) ListReserved(_ context.Context, olderThan time.Time, limit int) ([]domain.IdempotencyRecord, error) {
	s.mu.RLock()
	out := make([]domain.IdempotencyRecord, 0)
	for _, rec := range s.records {
		if rec.Status == domain.IdempotencyReserved && rec.CreatedAt.Before(olderThan) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NonceStore implements ports.NonceStore with expiring map entries.
type NonceStore struct {
	mu   sync.Mutex
	now  func() time.Time
	seen map[string]time.Time
}

// NewNonceStore creates an empty NonceStore.
func NewNonceStore() *NonceStore {
	return &NonceStore{now: time.Now, seen: make(map[string]time.Time)}
}

func (s *NonceStore) CheckAndSet(_ context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := scope + ":" + nonce
	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
