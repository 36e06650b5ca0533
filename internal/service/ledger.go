package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// Ledger is the balance of one client: a Guard plus persistence, the
// idempotency registry and change notification.
type Ledger struct {
	clientID string
	guard    *Guard
	store    ports.StateStore
	registry ports.IdempotencyStore
	notifier ports.BalanceNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewLedger creates a ledger starting from initial.
func NewLedger(
	clientID string,
	initial domain.WalletState,
	store ports.StateStore,
	registry ports.IdempotencyStore,
	notifier ports.BalanceNotifier,
	log zerolog.Logger,
) *Ledger {
	log = log.With().Str("client_id", clientID).Logger()
	return &Ledger{
		clientID: clientID,
		guard:    NewGuard(initial, log),
		store:    store,
		registry: registry,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// State returns the latest wallet state.
func (l *Ledger) State() domain.WalletState {
	return l.guard.Snapshot()
}

// Credit adds amount. A non-empty key is applied at most once.
func (l *Ledger) Credit(ctx context.Context, amount int64, key string) *domain.MutationResult {
	return l.mutate(ctx, domain.MutationCredit, amount, key)
}

// Debit subtracts amount when the balance covers it.
func (l *Ledger) Debit(ctx context.Context, amount int64, key string) *domain.MutationResult {
	return l.mutate(ctx, domain.MutationDebit, amount, key)
}

// Reset zeroes the balance. Applied keys are kept so old payments stay deduplicated.
func (l *Ledger) Reset(ctx context.Context) *domain.MutationResult {
	res := l.guard.Exclusive(ctx, func(cur domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		tx := domain.LastTransaction{
			ID:        domain.NewTransactionID(domain.MutationReset),
			Amount:    -cur.Balance,
			Timestamp: l.now().UnixMilli(),
		}
		next := cur.Clone()
		next.Apply(tx)
		if err := l.persist(ctx, next); err != nil {
			l.log.Error().Err(err).Msg("persist wallet reset")
			return nil, domain.RejectedResult(cur.Balance, domain.RejectStorageFailure)
		}
		return &next, domain.AppliedResult(next.Balance, tx)
	})

	l.log.Info().Str("status", string(res.Status)).Int64("balance", res.Balance).Msg("wallet reset")
	if res.Applied() {
		l.notify()
	}
	return res
}

func (l *Ledger) mutate(ctx context.Context, kind domain.MutationKind, amount int64, key string) *domain.MutationResult {
	res := l.guard.Attempt(ctx, key, amount, func(cur domain.WalletState) (*domain.WalletState, *domain.MutationResult) {
		if key != "" {
			if cur.RecentlyApplied(key) {
				l.markApplied(ctx, kind, amount, key)
				return nil, domain.DuplicateResult(cur.Balance)
			}
			if l.seen(ctx, key) {
				return nil, domain.DuplicateResult(cur.Balance)
			}
		}

		signed := amount
		if kind == domain.MutationDebit {
			if cur.Balance < amount {
				return nil, domain.RejectedResult(cur.Balance, domain.RejectInsufficientFunds)
			}
			signed = -amount
		} else if amount > math.MaxInt64-cur.Balance {
			return nil, domain.RejectedResult(cur.Balance, domain.RejectInvalidAmount)
		}

		tx := domain.LastTransaction{
			ID:        domain.NewTransactionID(kind),
			SessionID: key,
			Amount:    signed,
			Timestamp: l.now().UnixMilli(),
		}
		next := cur.Clone()
		next.Apply(tx)
		if err := l.persist(ctx, next); err != nil {
			l.log.Error().Err(err).Str("identifier", key).Msg("persist wallet state")
			return nil, domain.RejectedResult(cur.Balance, domain.RejectStorageFailure)
		}
		return &next, domain.AppliedResult(next.Balance, tx)
	})

	l.log.Debug().
		Str("kind", string(kind)).
		Str("identifier", key).
		Int64("amount", amount).
		Str("status", string(res.Status)).
		Str("reason", string(res.Reason)).
		Int64("balance", res.Balance).
		Msg("wallet mutation")

	if res.Applied() {
		if key != "" {
			l.markApplied(context.WithoutCancel(ctx), kind, amount, key)
		}
		l.notify()
	}
	return res
}

// seen consults the registry. A lookup failure is logged and treated as unseen;
// the persisted key ring still covers recent keys.
func (l *Ledger) seen(ctx context.Context, key string) bool {
	rec, err := l.registry.Get(ctx, domain.BuildIdempotencyKey(l.clientID, key))
	if err != nil {
		l.log.Warn().Err(err).Str("identifier", key).Msg("idempotency lookup failed")
		return false
	}
	return rec.IsApplied()
}

func (l *Ledger) markApplied(ctx context.Context, kind domain.MutationKind, amount int64, key string) {
	now := l.now().UTC()
	err := l.registry.MarkApplied(ctx, &domain.IdempotencyRecord{
		Key:        domain.BuildIdempotencyKey(l.clientID, key),
		ClientID:   l.clientID,
		Identifier: key,
		Kind:       kind,
		Source:     domain.SourceOf(key),
		Amount:     amount,
		Status:     domain.IdempotencyApplied,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		l.log.Error().Err(err).Str("identifier", key).Msg("mark idempotency key applied")
	}
}

func (l *Ledger) persist(ctx context.Context, state domain.WalletState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode wallet state: %w", err)
	}
	return l.store.Put(ctx, domain.WalletNamespace, l.clientID, payload)
}

func (l *Ledger) notify() {
	if l.notifier != nil {
		l.notifier.Publish(l.clientID, l.guard.Snapshot())
	}
}
