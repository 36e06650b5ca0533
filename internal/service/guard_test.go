package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditFn(amount int64, key string) MutationFunc {
	return func(cur domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		tx := domain.LastTransaction{ID: domain.NewTransactionID(domain.MutationCredit), SessionID: key, Amount: amount}
		next := cur.Clone()
		next.Apply(tx)
		return &next, domain.AppliedResult(next.Balance, tx)
	}
}

func TestGuard_Attempt_Validation(t *testing.T) {
	g := NewGuard(domain.WalletState{Balance: 50}, zerolog.Nop())
	ctx := context.Background()

	for _, amount := range []int64{0, -10} {
		res := g.Attempt(ctx, "k", amount, creditFn(amount, "k"))
		assert.Equal(t, domain.MutationRejected, res.Status)
		assert.Equal(t, domain.RejectInvalidAmount, res.Reason)
		assert.Equal(t, int64(50), res.Balance)
	}
	assert.Equal(t, int64(50), g.Snapshot().Balance)
}

func TestGuard_Attempt_SingleSlotReplay(t *testing.T) {
	g := NewGuard(domain.WalletState{}, zerolog.Nop())
	ctx := context.Background()

	res := g.Attempt(ctx, "stripe-cs_1", 100, creditFn(100, "stripe-cs_1"))
	require.True(t, res.Applied())

	res = g.Attempt(ctx, "stripe-cs_1", 100, creditFn(100, "stripe-cs_1"))
	assert.True(t, res.Duplicate())
	assert.Equal(t, int64(100), g.Snapshot().Balance)

	// Keyless mutations are never replays.
	res = g.Attempt(ctx, "", 5, creditFn(5, ""))
	assert.True(t, res.Applied())
	res = g.Attempt(ctx, "", 5, creditFn(5, ""))
	assert.True(t, res.Applied())
	assert.Equal(t, int64(110), g.Snapshot().Balance)
}

func TestGuard_IsProcessingDuringMutation(t *testing.T) {
	g := NewGuard(domain.WalletState{}, zerolog.Nop())
	var seen bool

	res := g.Attempt(context.Background(), "k1", 10, func(cur domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		seen = g.Snapshot().IsProcessing
		return creditFn(10, "k1")(cur)
	})

	require.True(t, res.Applied())
	assert.True(t, seen, "flag is set while the body runs")
	assert.False(t, g.Snapshot().IsProcessing, "flag is cleared afterwards")
}

func TestGuard_PanicIsRecovered(t *testing.T) {
	g := NewGuard(domain.WalletState{Balance: 20}, zerolog.Nop())

	res := g.Attempt(context.Background(), "k", 10, func(domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		panic("boom")
	})

	assert.Equal(t, domain.MutationRejected, res.Status)
	assert.Equal(t, domain.RejectInternal, res.Reason)
	assert.Equal(t, int64(20), res.Balance)
	assert.False(t, g.Snapshot().IsProcessing)

	// The lock was released.
	res = g.Attempt(context.Background(), "k2", 5, creditFn(5, "k2"))
	assert.True(t, res.Applied())
}

func TestGuard_CanceledWhileWaiting(t *testing.T) {
	g := NewGuard(domain.WalletState{Balance: 7}, zerolog.Nop())
	release := make(chan struct{})
	entered := make(chan struct{})

	go g.Attempt(context.Background(), "hold", 1, func(cur domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		close(entered)
		<-release
		return nil, domain.DuplicateResult(cur.Balance)
	})
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := g.Attempt(ctx, "waiter", 1, creditFn(1, "waiter"))
	close(release)

	assert.Equal(t, domain.RejectCanceled, res.Reason)
	assert.Equal(t, int64(7), res.Balance)
}

func TestGuard_ConcurrentSameKeyAppliesOnce(t *testing.T) {
	g := NewGuard(domain.WalletState{}, zerolog.Nop())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := g.Attempt(ctx, "paypal-O-1", 1000, creditFn(1000, "paypal-O-1"))
			if res.Applied() {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(1000), g.Snapshot().Balance)
}
