package memory

import (
	"context"
	"testing"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_GetPut(t *testing.T) {
	s := NewStateStore()
	ctx := context.Background()

	got, err := s.Get(ctx, domain.WalletNamespace, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	payload := []byte(`{"balance":100}`)
	require.NoError(t, s.Put(ctx, domain.WalletNamespace, "c1", payload))
	payload[2] = 'X'

	got, err = s.Get(ctx, domain.WalletNamespace, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":100}`, string(got), "store keeps its own copy")

	other, err := s.Get(ctx, domain.StreakNamespace, "c1")
	require.NoError(t, err)
	assert.Nil(t, other, "namespaces are independent")
}

func TestIdempotencyStore_ReserveOnce(t *testing.T) {
	s := NewIdempotencyStore()
	ctx := context.Background()
	rec := &domain.IdempotencyRecord{Key: "c1:stripe-cs_1", Amount: 500, Status: domain.IdempotencyReserved}

	ok, err := s.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Get(ctx, rec.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Amount)
	assert.False(t, got.IsApplied())
}

func TestIdempotencyStore_MarkApplied(t *testing.T) {
	s := NewIdempotencyStore()
	ctx := context.Background()
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := s.Reserve(ctx, &domain.IdempotencyRecord{Key: "k", Amount: 10, Status: domain.IdempotencyReserved, CreatedAt: created})
	require.NoError(t, err)
	require.NoError(t, s.MarkApplied(ctx, &domain.IdempotencyRecord{Key: "k", Amount: 10, UpdatedAt: created.Add(time.Second)}))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, got.IsApplied())
	assert.Equal(t, created, got.CreatedAt, "reservation time is kept")

	require.NoError(t, s.MarkApplied(ctx, &domain.IdempotencyRecord{Key: "fresh", Amount: 3}))
	fresh, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, fresh.IsApplied(), "unknown keys are inserted as applied")
}

func TestIdempotencyStore_ListReserved(t *testing.T) {
	s := NewIdempotencyStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	for i, key := range []string{"c", "a", "b"} {
		_, err := s.Reserve(ctx, &domain.IdempotencyRecord{Key: key, Status: domain.IdempotencyReserved, CreatedAt: base.Add(time.Duration(2-i) * time.Minute)})
		require.NoError(t, err)
	}
	require.NoError(t, s.MarkApplied(ctx, &domain.IdempotencyRecord{Key: "a"}))

	got, err := s.ListReserved(ctx, base.Add(10*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Key)
	assert.Equal(t, "c", got[1].Key)

	limited, err := s.ListReserved(ctx, base.Add(10*time.Minute), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListReserved(ctx, base, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNonceStore_CheckAndSet(t *testing.T) {
	s := NewNonceStore()
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := s.CheckAndSet(ctx, "stripe", "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CheckAndSet(ctx, "stripe", "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CheckAndSet(ctx, "paypal", "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "scopes are independent")

	now = now.Add(2 * time.Hour)
	ok, err = s.CheckAndSet(ctx, "stripe", "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired nonces can be reused")
}
