package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// StreakServiceImpl implements ports.StreakService.
type StreakServiceImpl struct {
	store    ports.StateStore
	wallet   ports.WalletService
	bonus    int64
	interval int
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger

	mu sync.Mutex // serializes check-and-advance
}

// NewStreakService creates a new StreakServiceImpl.
func NewStreakService(cfg config.StreakConfig, store ports.StateStore, wallet ports.WalletService, log zerolog.Logger) (*StreakServiceImpl, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading streak timezone: %w", err)
	}
	return &StreakServiceImpl{
		store:    store,
		wallet:   wallet,
		bonus:    cfg.BonusAmount,
		interval: cfg.IntervalDays,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}, nil
}

// State returns the stored streak without advancing it.
func (s *StreakServiceImpl) State(ctx context.Context, clientID string) (*domain.LoginStreakState, error) {
	st, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Check advances the streak for today and pays the bonus when the new streak is
// a multiple of the interval. The bonus key is derived from date and streak, so
// re-checks resolve to the same key and the ledger deduplicates them.
func (s *StreakServiceImpl) Check(ctx context.Context, clientID string) (*domain.StreakCheck, error) {
	if clientID == "" {
		return nil, apperror.Validation("client id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	next, advanced := cur.Advance(s.now().In(s.loc))
	if advanced {
		if err := s.save(ctx, clientID, next); err != nil {
			return nil, err
		}
	}

	out := &domain.StreakCheck{State: next, Advanced: advanced}
	if !domain.IsBonusStreak(next.Streak, s.interval) || s.bonus <= 0 {
		return out, nil
	}

	out.BonusIdentifier = domain.StreakBonusIdentifier(next.LastLoginDate, next.Streak)
	res, err := s.wallet.Credit(ctx, clientID, s.bonus, out.BonusIdentifier)
	if err != nil {
		return nil, err
	}
	out.Credit = res
	out.BonusAwarded = res.Applied()

	s.log.Debug().
		Str("client_id", clientID).
		Str("identifier", out.BonusIdentifier).
		Int("streak", next.Streak).
		Str("state", string(res.Status)).
		Msg("streak bonus")
	return out, nil
}

func (s *StreakServiceImpl) load(ctx context.Context, clientID string) (domain.LoginStreakState, error) {
	var st domain.LoginStreakState
	raw, err := s.store.Get(ctx, domain.StreakNamespace, clientID)
	if err != nil {
		return st, apperror.ErrStorageUnavailable(err)
	}
	if raw == nil {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return st, apperror.ErrDatabaseError(fmt.Errorf("decode streak: %w", err))
	}
	return st, nil
}

func (s *StreakServiceImpl) save(ctx context.Context, clientID string, st domain.LoginStreakState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := s.store.Put(ctx, domain.StreakNamespace, clientID, raw); err != nil {
		s.log.Error().Err(err).Str("client_id", clientID).Msg("persist streak")
		return apperror.ErrStorageUnavailable(err)
	}
	return nil
}
