package service

import (
	"context"
	"sync/atomic"

	"storefront-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

// MutationFunc computes a mutation from the current state. A nil next state
// leaves the wallet untouched.
type MutationFunc func(cur domain.WalletState) (next *domain.WalletState, res *domain.MutationResult)

// Guard is the critical section around one wallet. It owns the in-memory
// state; only code running inside Attempt or Exclusive may change it.
type Guard struct {
	sem   chan struct{}
	state domain.WalletState
	snap  atomic.Pointer[domain.WalletState]
	log   zerolog.Logger
}

// NewGuard creates a guard over initial.
func NewGuard(initial domain.WalletState, log zerolog.Logger) *Guard {
	g := &Guard{
		sem:   make(chan struct{}, 1),
		state: initial.Clone(),
		log:   log,
	}
	g.state.IsProcessing = false
	g.publish()
	return g
}

// Snapshot returns the latest published state without waiting for the lock.
func (g *Guard) Snapshot() domain.WalletState {
	return g.snap.Load().Clone()
}

// Attempt validates amount and the single-slot replay check, then runs fn.
func (g *Guard) Attempt(ctx context.Context, key string, amount int64, fn MutationFunc) *domain.MutationResult {
	return g.run(ctx, func(cur domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		if amount <= 0 {
			return nil, domain.RejectedResult(cur.Balance, domain.RejectInvalidAmount)
		}
		if cur.IsReplay(key) {
			return nil, domain.DuplicateResult(cur.Balance)
		}
		return fn(cur)
	})
}

// Exclusive runs fn under the lock without validation or dedup.
func (g *Guard) Exclusive(ctx context.Context, fn MutationFunc) *domain.MutationResult {
	return g.run(ctx, fn)
}

func (g *Guard) run(ctx context.Context, fn MutationFunc) (res *domain.MutationResult) {
	if ctx.Err() != nil {
		return domain.RejectedResult(g.snap.Load().Balance, domain.RejectCanceled)
	}
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return domain.RejectedResult(g.snap.Load().Balance, domain.RejectCanceled)
	}

	g.state.IsProcessing = true
	g.publish()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Msg("wallet mutation panicked")
			res = domain.RejectedResult(g.state.Balance, domain.RejectInternal)
		}
		g.state.IsProcessing = false
		g.publish()
		<-g.sem
	}()

	next, res := fn(g.state.Clone())
	if res == nil {
		return domain.RejectedResult(g.state.Balance, domain.RejectInternal)
	}
	if next != nil {
		g.state = next.Clone()
		g.state.IsProcessing = true
	}
	return res
}

// publish stores an immutable copy for lock-free readers. Caller holds the lock
// or is the constructor.
func (g *Guard) publish() {
	cp := g.state.Clone()
	g.snap.Store(&cp)
}
