package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/core/ports"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// SweepServiceImpl re-issues credits for payments that were reserved in the
// registry but never marked applied, e.g. after a crash between the two steps.
type SweepServiceImpl struct {
	registry   ports.IdempotencyStore
	wallet     ports.WalletService
	staleAfter time.Duration
	batchSize  int
	log        zerolog.Logger
	now        func() time.Time
}

// NewSweepService creates a new SweepServiceImpl.
func NewSweepService(cfg config.ReconcileConfig, registry ports.IdempotencyStore, wallet ports.WalletService, log zerolog.Logger) *SweepServiceImpl {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &SweepServiceImpl{
		registry:   registry,
		wallet:     wallet,
		staleAfter: cfg.StaleAfter,
		batchSize:  batch,
		log:        log,
		now:        time.Now,
	}
}

// Sweep settles one batch of stale reservations and returns how many reached
// the ledger (applied now or found already applied).
func (s *SweepServiceImpl) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	recs, err := s.registry.ListReserved(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list reserved: %w", err)
	}

	var (
		settled int
		errs    []error
	)
	for _, rec := range recs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if rec.ClientID == "" || rec.Amount <= 0 {
			s.log.Warn().Str("key", rec.Key).Msg("skipping malformed reservation")
			continue
		}

		res, err := s.wallet.Credit(ctx, rec.ClientID, rec.Amount, rec.Identifier)
		if err != nil {
			errs = append(errs, fmt.Errorf("credit %s: %w", rec.Key, err))
			continue
		}
		if !res.Applied() && !res.Duplicate() {
			errs = append(errs, fmt.Errorf("credit %s rejected: %s", rec.Key, res.Reason))
			continue
		}

		settled++
		s.log.Info().
			Str("client_id", rec.ClientID).
			Str("identifier", rec.Identifier).
			Str("status", string(res.Status)).
			Msg("orphaned reservation settled")
	}
	return settled, errors.Join(errs...)
}

// SweepScheduler runs a SweepService on a fixed interval.
type SweepScheduler struct {
	sched    gocron.Scheduler
	sweeper  ports.SweepService
	interval time.Duration
	log      zerolog.Logger
}

// NewSweepScheduler creates a stopped scheduler.
func NewSweepScheduler(interval time.Duration, sweeper ports.SweepService, log zerolog.Logger) (*SweepScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &SweepScheduler{sched: sched, sweeper: sweeper, interval: interval, log: log}, nil
}

// Start registers the sweep job and starts the scheduler. The first sweep runs immediately.
func (s *SweepScheduler) Start(ctx context.Context) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			n, err := s.sweeper.Sweep(context.WithoutCancel(ctx))
			if err != nil {
				s.log.Error().Err(err).Int("settled", n).Msg("sweep failed")
				return
			}
			if n > 0 {
				s.log.Info().Int("settled", n).Msg("sweep finished")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.sched.Start()
	s.log.Info().Dur("interval", s.interval).Msg("sweep scheduler started")
	return nil
}

// Stop waits for a running sweep and shuts the scheduler down.
func (s *SweepScheduler) Stop() error {
	return s.sched.Shutdown()
}
