package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "wallet.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigratesIdempotently(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, migrate(context.Background(), db), "schema can be applied twice")

	hc := NewHealthCheck(db)
	assert.NoError(t, hc.Ping(context.Background()))
	assert.Equal(t, "sqlite", hc.Name())
}

func TestStateRepo_GetPut(t *testing.T) {
	db := openTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, domain.WalletNamespace, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Put(ctx, domain.WalletNamespace, "c1", []byte(`{"balance":1}`)))
	require.NoError(t, repo.Put(ctx, domain.WalletNamespace, "c1", []byte(`{"balance":2}`)))
	require.NoError(t, repo.Put(ctx, domain.StreakNamespace, "c1", []byte(`{"streak":3}`)))

	got, err = repo.Get(ctx, domain.WalletNamespace, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":2}`, string(got))

	streak, err := repo.Get(ctx, domain.StreakNamespace, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"streak":3}`, string(streak))
}

func newRecord(key string, created time.Time) *domain.IdempotencyRecord {
	return &domain.IdempotencyRecord{
		Key:        key,
		ClientID:   "c1",
		Identifier: "stripe-" + key,
		Kind:       domain.MutationCredit,
		Source:     "stripe",
		Amount:     500,
		Status:     domain.IdempotencyReserved,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestIdempotencyRepo_ReserveGetMark(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdempotencyRepo(db)
	ctx := context.Background()
	created := time.Date(2024, 3, 10, 9, 0, 0, 123, time.UTC)

	ok, err := repo.Reserve(ctx, newRecord("k1", created))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reserve(ctx, newRecord("k1", created.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok, "second reservation of the same key is refused")

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.IdempotencyReserved, got.Status)
	assert.Equal(t, domain.MutationCredit, got.Kind)
	assert.Equal(t, int64(500), got.Amount)
	assert.True(t, created.Equal(got.CreatedAt))

	applied := newRecord("k1", created)
	applied.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, repo.MarkApplied(ctx, applied))

	got, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, got.IsApplied())
	assert.True(t, created.Add(time.Minute).Equal(got.UpdatedAt))

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIdempotencyRepo_ListReserved(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdempotencyRepo(db)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	for i, key := range []string{"old", "mid", "new"} {
		_, err := repo.Reserve(ctx, newRecord(key, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkApplied(ctx, newRecord("mid", base)))

	got, err := repo.ListReserved(ctx, base.Add(90*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Key)

	all, err := repo.ListReserved(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "old", all[0].Key)
	assert.Equal(t, "new", all[1].Key)
}

func TestIdempotencyRepo_ConcurrentReserve(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdempotencyRepo(db)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Reserve(ctx, newRecord("race", time.Now()))
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
