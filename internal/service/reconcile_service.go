package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReconcileServiceImpl implements ports.ReconcileService.
type ReconcileServiceImpl struct {
	verifier ports.VerificationService
	registry ports.IdempotencyStore
	wallet   ports.WalletService
	printer  *message.Printer
	log      zerolog.Logger
	now      func() time.Time

	group singleflight.Group
}

// NewReconcileService creates a new ReconcileServiceImpl.
func NewReconcileService(
	verifier ports.VerificationService,
	registry ports.IdempotencyStore,
	wallet ports.WalletService,
	log zerolog.Logger,
) *ReconcileServiceImpl {
	return &ReconcileServiceImpl{
		verifier: verifier,
		registry: registry,
		wallet:   wallet,
		printer:  message.NewPrinter(language.Japanese),
		log:      log,
		now:      time.Now,
	}
}

// Reconcile runs one reconciliation for a provider redirect. Concurrent calls
// for the same client and payment share a single run.
func (s *ReconcileServiceImpl) Reconcile(ctx context.Context, clientID string, params domain.CallbackParams) *domain.ReconcileOutcome {
	_, identifier, err := params.Identifier()
	if err != nil {
		return s.NewSession(clientID, params).Run(ctx)
	}

	v, _, _ := s.group.Do(clientID+"|"+identifier, func() (any, error) {
		return s.NewSession(clientID, params).Run(ctx), nil
	})
	return v.(*domain.ReconcileOutcome)
}

// NewSession prepares a reconciliation for one page visit.
func (s *ReconcileServiceImpl) NewSession(clientID string, params domain.CallbackParams) *ReconcileSession {
	return &ReconcileSession{
		svc:      s,
		clientID: clientID,
		params:   params,
		state:    domain.ReconcileIdle,
		log:      s.log.With().Str("client_id", clientID).Logger(),
	}
}

// ReconcileSession is a once-only reconciliation state machine.
type ReconcileSession struct {
	svc      *ReconcileServiceImpl
	clientID string
	params   domain.CallbackParams
	log      zerolog.Logger

	mu      sync.Mutex
	state   domain.ReconcileState
	outcome *domain.ReconcileOutcome
}

// State returns the current step.
func (r *ReconcileSession) State() domain.ReconcileState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run drives the session to a terminal state. It returns nil if the session
// is already running, and the stored outcome once it has finished.
func (r *ReconcileSession) Run(ctx context.Context) *domain.ReconcileOutcome {
	r.mu.Lock()
	switch {
	case r.state.IsTerminal():
		out := r.outcome
		r.mu.Unlock()
		return out
	case r.state != domain.ReconcileIdle:
		r.mu.Unlock()
		return nil
	}
	r.state = domain.ReconcileChecking
	r.mu.Unlock()

	out := r.run(ctx)

	r.mu.Lock()
	r.state = out.State
	r.outcome = out
	r.mu.Unlock()

	r.log.Debug().
		Str("identifier", out.Identifier).
		Str("state", string(out.State)).
		Bool("already_processed", out.AlreadyProcessed).
		Msg("reconcile finished")
	return out
}

func (r *ReconcileSession) transition(state domain.ReconcileState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
	r.log.Debug().Str("state", string(state)).Msg("reconcile transition")
}

func (r *ReconcileSession) run(ctx context.Context) *domain.ReconcileOutcome {
	provider, identifier, err := r.params.Identifier()
	if err != nil {
		if !errors.Is(err, domain.ErrMissingPaymentInfo) {
			err = apperror.ErrUnsupportedProvider(r.params.Provider)
		} else {
			err = apperror.ErrMissingPaymentInfo()
		}
		return r.failed(domain.FailureMissingPaymentInfo, "", provider, err)
	}

	key := domain.BuildIdempotencyKey(r.clientID, identifier)
	rec, err := r.svc.registry.Get(ctx, key)
	if err != nil {
		// Reserve below is the authoritative gate.
		r.log.Error().Err(err).Str("identifier", identifier).Msg("registry lookup failed")
		rec = nil
	}
	if rec != nil {
		r.transition(domain.ReconcileAlreadyProcessed)
		return r.alreadyProcessed(ctx, provider, identifier, rec)
	}

	r.transition(domain.ReconcileVerifying)
	v, err := r.svc.verifier.Verify(ctx, r.params.VerifyRequest(provider))
	if err != nil {
		return r.failed(domain.FailurePaymentIncomplete, identifier, provider, err)
	}
	if !v.Success {
		return r.failed(domain.FailurePaymentIncomplete, identifier, provider,
			apperror.ErrPaymentIncomplete().WithDetail("status: "+v.PaymentStatus))
	}
	if v.ClientID != "" && v.ClientID != r.clientID {
		return r.failed(domain.FailurePaymentIncomplete, identifier, provider, errForeignPayment())
	}
	if err := ctx.Err(); err != nil {
		return r.failed(domain.FailurePaymentIncomplete, identifier, provider, err)
	}

	now := r.svc.now()
	if err := r.claim(ctx, identifier, v.Amount, now); err != nil {
		return r.failed(domain.FailurePaymentIncomplete, identifier, provider, err)
	}
	rec = &domain.IdempotencyRecord{
		Key:        key,
		ClientID:   r.clientID,
		Identifier: identifier,
		Kind:       domain.MutationCredit,
		Source:     domain.SourceOf(identifier),
		Amount:     v.Amount,
		Status:     domain.IdempotencyReserved,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	reserved, err := r.svc.registry.Reserve(ctx, rec)
	if err != nil {
		return r.failed(domain.FailurePaymentIncomplete, identifier, provider, apperror.ErrStorageUnavailable(err))
	}
	if !reserved {
		// Another path (webhook, second tab) reserved the key first.
		existing, err := r.svc.registry.Get(ctx, key)
		if err != nil || existing == nil {
			existing = rec
		}
		return r.done(ctx, provider, identifier, v.Amount, existing.CreatedAt, true, nil)
	}

	credit, err := r.svc.wallet.Credit(context.WithoutCancel(ctx), r.clientID, v.Amount, identifier)
	if err != nil {
		r.log.Error().Err(err).Str("identifier", identifier).Msg("credit after reserve failed")
		credit = domain.RejectedResult(0, domain.RejectStorageFailure)
	}
	return r.done(ctx, provider, identifier, v.Amount, now, false, credit)
}

// claim binds the external payment to this wallet. A claim by the same wallet
// is kept so an interrupted reconcile can finish.
func (r *ReconcileSession) claim(ctx context.Context, identifier string, amount int64, now time.Time) error {
	rec := &domain.IdempotencyRecord{
		Key:        domain.PaymentClaimKey(identifier),
		ClientID:   r.clientID,
		Identifier: identifier,
		Kind:       domain.MutationCredit,
		Source:     domain.SourceOf(identifier),
		Amount:     amount,
		Status:     domain.IdempotencyApplied, // never swept
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ok, err := r.svc.registry.Reserve(ctx, rec)
	if err != nil {
		return apperror.ErrStorageUnavailable(err)
	}
	if ok {
		return nil
	}
	owner, err := r.svc.registry.Get(ctx, rec.Key)
	if err != nil {
		return apperror.ErrStorageUnavailable(err)
	}
	if owner != nil && owner.ClientID != r.clientID {
		return errForeignPayment()
	}
	return nil
}

func errForeignPayment() error {
	return apperror.ErrPaymentIncomplete().WithDetail("payment belongs to another wallet")
}

// alreadyProcessed shows the payment without touching the ledger. The
// provider is asked for display data only; if it cannot answer, the
// registry's amount is shown.
func (r *ReconcileSession) alreadyProcessed(ctx context.Context, provider domain.Provider, identifier string, rec *domain.IdempotencyRecord) *domain.ReconcileOutcome {
	amount := rec.Amount
	v, err := r.svc.verifier.Verify(ctx, r.params.VerifyRequest(provider))
	if err != nil {
		r.log.Warn().Err(err).Str("identifier", identifier).Msg("display verification failed")
	} else if v.Success && v.Amount > 0 {
		amount = v.Amount
	}
	return r.done(ctx, provider, identifier, amount, rec.CreatedAt, true, nil)
}

func (r *ReconcileSession) done(
	ctx context.Context,
	provider domain.Provider,
	identifier string,
	amount int64,
	processedAt time.Time,
	already bool,
	credit *domain.MutationResult,
) *domain.ReconcileOutcome {
	out := &domain.ReconcileOutcome{
		State:            domain.ReconcileDone,
		Identifier:       identifier,
		Provider:         provider,
		Amount:           amount,
		AlreadyProcessed: already,
		ProcessedAt:      processedAt,
		Credit:           credit,
	}

	p := r.svc.printer
	name := provider.DisplayName()
	switch {
	case already:
		out.Message = p.Sprintf("この決済は処理済みです（%s・%d円）", name, amount)
	case credit.Applied() || credit.Duplicate():
		out.Message = p.Sprintf("%sで%d円のチャージが完了しました", name, amount)
	default:
		out.Message = p.Sprintf("%sで%d円の決済を確認しました。残高への反映を再試行します", name, amount)
	}

	if credit != nil && credit.Status != domain.MutationRejected {
		out.Balance = credit.Balance
	} else if st, err := r.svc.wallet.State(context.WithoutCancel(ctx), r.clientID); err == nil {
		out.Balance = st.Balance
	}
	return out
}

func (r *ReconcileSession) failed(reason domain.FailureReason, identifier string, provider domain.Provider, err error) *domain.ReconcileOutcome {
	r.log.Warn().Err(err).
		Str("identifier", identifier).
		Str("failure", string(reason)).
		Msg("reconcile failed")

	out := &domain.ReconcileOutcome{
		State:      domain.ReconcileFailed,
		Identifier: identifier,
		Provider:   provider,
		Failure:    reason,
		Err:        err,
	}
	if reason == domain.FailureMissingPaymentInfo {
		out.Message = r.svc.printer.Sprintf("決済情報が見つかりません")
	} else {
		out.Message = r.svc.printer.Sprintf("決済が完了していません")
	}
	return out
}
