package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"storefront-wallet/internal/adapter/storage/memory"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// flakyStore fails Put while broken is set.
type flakyStore struct {
	*memory.StateStore
	mu     sync.Mutex
	broken bool
}

func (s *flakyStore) Put(ctx context.Context, namespace, clientID string, payload []byte) error {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken {
		return errors.New("disk full")
	}
	return s.StateStore.Put(ctx, namespace, clientID, payload)
}

func (s *flakyStore) setBroken(v bool) {
	s.mu.Lock()
	s.broken = v
	s.mu.Unlock()
}

type ledgerDeps struct {
	ledger   *Ledger
	store    *flakyStore
	registry *memory.IdempotencyStore
}

func setupLedger(t *testing.T, initial domain.WalletState) *ledgerDeps {
	t.Helper()
	d := &ledgerDeps{
		store:    &flakyStore{StateStore: memory.NewStateStore()},
		registry: memory.NewIdempotencyStore(),
	}
	d.ledger = NewLedger("client-1", initial, d.store, d.registry, nil, zerolog.Nop())
	return d
}

func persistedState(t *testing.T, d *ledgerDeps) domain.WalletState {
	t.Helper()
	raw, err := d.store.Get(context.Background(), domain.WalletNamespace, "client-1")
	require.NoError(t, err)
	require.NotNil(t, raw)
	var st domain.WalletState
	require.NoError(t, json.Unmarshal(raw, &st))
	return st
}

func TestLedger_Credit(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()

	res := d.ledger.Credit(ctx, 500, "stripe-cs_1")
	require.True(t, res.Applied())
	assert.Equal(t, int64(500), res.Balance)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, "stripe-cs_1", res.Transaction.SessionID)
	assert.Equal(t, int64(500), res.Transaction.Amount)
	assert.Contains(t, res.Transaction.ID, "credit-")

	st := persistedState(t, d)
	assert.Equal(t, int64(500), st.Balance)
	assert.Equal(t, []string{"stripe-cs_1"}, st.RecentKeys)

	rec, err := d.registry.Get(ctx, "client-1:stripe-cs_1")
	require.NoError(t, err)
	assert.True(t, rec.IsApplied())
	assert.Equal(t, "stripe", rec.Source)
}

func TestLedger_Credit_SameKeyTwice(t *testing.T) {
	d := setupLedger(t, domain.WalletState{Balance: 100})
	ctx := context.Background()

	first := d.ledger.Credit(ctx, 1000, "paypal-O-1")
	second := d.ledger.Credit(ctx, 1000, "paypal-O-1")

	assert.True(t, first.Applied())
	assert.True(t, second.Duplicate())
	assert.Equal(t, int64(1100), d.ledger.State().Balance)
}

func TestLedger_Credit_OlderKeyCaughtByRing(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()

	require.True(t, d.ledger.Credit(ctx, 10, "stripe-a").Applied())
	require.True(t, d.ledger.Credit(ctx, 10, "stripe-b").Applied())

	res := d.ledger.Credit(ctx, 10, "stripe-a")
	assert.True(t, res.Duplicate(), "not the last transaction, still deduplicated")
	assert.Equal(t, int64(20), d.ledger.State().Balance)
}

func TestLedger_Credit_RingHealsRegistry(t *testing.T) {
	d := setupLedger(t, domain.WalletState{
		Balance:    300,
		RecentKeys: []string{"stripe-old"},
	})
	ctx := context.Background()

	res := d.ledger.Credit(ctx, 300, "stripe-old")
	assert.True(t, res.Duplicate())

	rec, err := d.registry.Get(ctx, "client-1:stripe-old")
	require.NoError(t, err)
	assert.True(t, rec.IsApplied())
}

func TestLedger_Credit_RegistryAppliedIsDuplicate(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()
	require.NoError(t, d.registry.MarkApplied(ctx, &domain.IdempotencyRecord{
		Key: "client-1:stripe-evicted", ClientID: "client-1", Identifier: "stripe-evicted",
		Kind: domain.MutationCredit, Amount: 50, Status: domain.IdempotencyApplied,
	}))

	res := d.ledger.Credit(ctx, 50, "stripe-evicted")
	assert.True(t, res.Duplicate())
	assert.Zero(t, d.ledger.State().Balance)
}

func TestLedger_Credit_ReservedKeyIsCredited(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()
	ok, err := d.registry.Reserve(ctx, &domain.IdempotencyRecord{
		Key: "client-1:paypal-X", ClientID: "client-1", Identifier: "paypal-X",
		Kind: domain.MutationCredit, Amount: 70, Status: domain.IdempotencyReserved,
	})
	require.NoError(t, err)
	require.True(t, ok)

	res := d.ledger.Credit(ctx, 70, "paypal-X")
	assert.True(t, res.Applied())

	rec, err := d.registry.Get(ctx, "client-1:paypal-X")
	require.NoError(t, err)
	assert.True(t, rec.IsApplied())
}

func TestLedger_Credit_RegistryLookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIdempotencyStore(ctrl)
	ledger := NewLedger("client-1", domain.WalletState{}, memory.NewStateStore(), registry, nil, zerolog.Nop())

	registry.EXPECT().Get(gomock.Any(), "client-1:stripe-z").Return(nil, errors.New("redis down"))
	registry.EXPECT().MarkApplied(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	res := ledger.Credit(context.Background(), 40, "stripe-z")
	assert.True(t, res.Applied(), "registry outages do not block credits")
	assert.Equal(t, int64(40), ledger.State().Balance)
}

func TestLedger_Credit_RejectsOverflow(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()

	require.True(t, d.ledger.Credit(ctx, math.MaxInt64, "paypal-SANDBOX-big").Applied())

	res := d.ledger.Credit(ctx, 1000, "paypal-SANDBOX-1000-2")
	assert.Equal(t, domain.MutationRejected, res.Status)
	assert.Equal(t, domain.RejectInvalidAmount, res.Reason)
	assert.Equal(t, int64(math.MaxInt64), res.Balance)
	assert.Equal(t, int64(math.MaxInt64), persistedState(t, d).Balance)

	rec, err := d.registry.Get(ctx, "client-1:paypal-SANDBOX-1000-2")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLedger_Debit(t *testing.T) {
	d := setupLedger(t, domain.WalletState{Balance: 100})
	ctx := context.Background()

	res := d.ledger.Debit(ctx, 30, "order-1")
	require.True(t, res.Applied())
	assert.Equal(t, int64(70), res.Balance)
	assert.Equal(t, int64(-30), res.Transaction.Amount)

	res = d.ledger.Debit(ctx, 71, "order-2")
	assert.False(t, res.Applied())
	assert.Equal(t, domain.RejectInsufficientFunds, res.Reason)
	assert.Equal(t, int64(70), d.ledger.State().Balance)

	res = d.ledger.Debit(ctx, 0, "order-3")
	assert.Equal(t, domain.RejectInvalidAmount, res.Reason)
}

func TestLedger_StorageFailureLeavesBalance(t *testing.T) {
	d := setupLedger(t, domain.WalletState{Balance: 10})
	ctx := context.Background()
	d.store.setBroken(true)

	res := d.ledger.Credit(ctx, 90, "stripe-cs_9")
	assert.Equal(t, domain.MutationRejected, res.Status)
	assert.Equal(t, domain.RejectStorageFailure, res.Reason)
	assert.Equal(t, int64(10), d.ledger.State().Balance)

	rec, err := d.registry.Get(ctx, "client-1:stripe-cs_9")
	require.NoError(t, err)
	assert.Nil(t, rec, "failed credit never reaches the registry")

	d.store.setBroken(false)
	res = d.ledger.Credit(ctx, 90, "stripe-cs_9")
	assert.True(t, res.Applied(), "retry after recovery succeeds")
	assert.Equal(t, int64(100), d.ledger.State().Balance)
}

func TestLedger_Reset(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()
	require.True(t, d.ledger.Credit(ctx, 250, "stripe-r").Applied())

	res := d.ledger.Reset(ctx)
	require.True(t, res.Applied())
	assert.Zero(t, res.Balance)
	assert.Contains(t, res.Transaction.ID, "reset-")
	assert.Equal(t, int64(-250), res.Transaction.Amount)

	st := persistedState(t, d)
	assert.Zero(t, st.Balance)

	assert.True(t, d.ledger.Credit(ctx, 250, "stripe-r").Duplicate(), "reset does not forget applied keys")
}

func TestLedger_NotifiesOnApply(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockBalanceNotifier(ctrl)
	ledger := NewLedger("client-1", domain.WalletState{}, memory.NewStateStore(), memory.NewIdempotencyStore(), notifier, zerolog.Nop())

	notifier.EXPECT().Publish("client-1", gomock.Any()).Do(func(_ string, st domain.WalletState) {
		assert.Equal(t, int64(5), st.Balance)
		assert.False(t, st.IsProcessing)
	}).Times(1)

	ledger.Credit(context.Background(), 5, "stripe-n")
	ledger.Credit(context.Background(), 5, "stripe-n")
}

func TestLedger_ConcurrentDistinctKeys(t *testing.T) {
	d := setupLedger(t, domain.WalletState{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := "stripe-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
			d.ledger.Credit(ctx, 2, key)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), d.ledger.State().Balance)
	assert.Equal(t, int64(100), persistedState(t, d).Balance)
}
