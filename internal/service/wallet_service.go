package service

import (
	"context"
	"encoding/json"
	"sync"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService with one Ledger per client,
// loaded on first use.
type WalletServiceImpl struct {
	store    ports.StateStore
	registry ports.IdempotencyStore
	notifier ports.BalanceNotifier
	log      zerolog.Logger

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewWalletService creates a new WalletServiceImpl. notifier may be nil.
func NewWalletService(
	store ports.StateStore,
	registry ports.IdempotencyStore,
	notifier ports.BalanceNotifier,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		store:    store,
		registry: registry,
		notifier: notifier,
		log:      log,
		ledgers:  make(map[string]*Ledger),
	}
}

// State returns the client's wallet.
func (s *WalletServiceImpl) State(ctx context.Context, clientID string) (*domain.WalletState, error) {
	l, err := s.ledger(ctx, clientID)
	if err != nil {
		return nil, err
	}
	state := l.State()
	return &state, nil
}

// Credit adds amount to the client's balance.
func (s *WalletServiceImpl) Credit(ctx context.Context, clientID string, amount int64, key string) (*domain.MutationResult, error) {
	l, err := s.ledger(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return l.Credit(ctx, amount, key), nil
}

// Debit subtracts amount from the client's balance.
func (s *WalletServiceImpl) Debit(ctx context.Context, clientID string, amount int64, key string) (*domain.MutationResult, error) {
	l, err := s.ledger(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return l.Debit(ctx, amount, key), nil
}

// Reset zeroes the client's balance.
func (s *WalletServiceImpl) Reset(ctx context.Context, clientID string) (*domain.MutationResult, error) {
	l, err := s.ledger(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return l.Reset(ctx), nil
}

func (s *WalletServiceImpl) ledger(ctx context.Context, clientID string) (*Ledger, error) {
	if clientID == "" {
		return nil, apperror.Validation("client id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[clientID]; ok {
		return l, nil
	}

	payload, err := s.store.Get(ctx, domain.WalletNamespace, clientID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}

	var initial domain.WalletState
	if payload != nil {
		if err := json.Unmarshal(payload, &initial); err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
	}

	l := NewLedger(clientID, initial, s.store, s.registry, s.notifier, s.log)
	s.ledgers[clientID] = l
	s.log.Debug().Str("client_id", clientID).Int64("balance", initial.Balance).Msg("wallet loaded")
	return l, nil
}
