package service

import (
	"context"
	"encoding/json"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	webhookNonceScope = "stripe-webhook"
	// Stripe retries a delivery for up to three days.
	webhookNonceTTL = 72 * time.Hour
)

// stripeEvent is the envelope of a Stripe webhook delivery.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeSessionObject struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

type stripeIntentObject struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// WebhookServiceImpl implements ports.WebhookService for Stripe events.
type WebhookServiceImpl struct {
	secret     string
	tolerance  time.Duration
	sig        ports.SignatureService
	nonces     ports.NonceStore
	reconciler ports.ReconcileService
	log        zerolog.Logger
	now        func() time.Time
}

// NewWebhookService creates a new WebhookServiceImpl. Signatures are only
// checked when cfg.WebhookSecret is set.
func NewWebhookService(
	cfg config.StripeConfig,
	sig ports.SignatureService,
	nonces ports.NonceStore,
	reconciler ports.ReconcileService,
	log zerolog.Logger,
) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		secret:     cfg.WebhookSecret,
		tolerance:  cfg.WebhookTolerance,
		sig:        sig,
		nonces:     nonces,
		reconciler: reconciler,
		log:        log,
		now:        time.Now,
	}
}

// HandleStripeEvent verifies and dispatches one delivery.
func (s *WebhookServiceImpl) HandleStripeEvent(ctx context.Context, payload []byte, signatureHeader string) (*domain.WebhookResult, error) {
	if s.secret != "" {
		if err := VerifyStripeSignature(s.sig, s.secret, payload, signatureHeader, s.tolerance, s.now()); err != nil {
			s.log.Warn().Err(err).Msg("webhook signature rejected")
			return nil, apperror.ErrInvalidSignature().WithDetail(err.Error())
		}
	}

	var evt stripeEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, apperror.Validation("malformed event payload")
	}
	if evt.Type == "" {
		return nil, apperror.Validation("event type is required")
	}

	// Validate before recording the event id; a rejected delivery stays retryable.
	var session stripeSessionObject
	if evt.Type == domain.EventCheckoutSessionCompleted {
		if err := json.Unmarshal(evt.Data.Object, &session); err != nil || session.ID == "" {
			return nil, apperror.Validation("checkout session object is malformed")
		}
	}

	result := &domain.WebhookResult{Received: true, Type: evt.Type}
	log := s.log.With().Str("event_id", evt.ID).Str("event_type", evt.Type).Logger()

	if evt.ID != "" && s.nonces != nil {
		fresh, err := s.nonces.CheckAndSet(ctx, webhookNonceScope, evt.ID, webhookNonceTTL)
		switch {
		case err != nil:
			// Reconciliation is idempotent on its own.
			log.Warn().Err(err).Msg("webhook nonce check failed")
		case !fresh:
			log.Debug().Msg("duplicate webhook delivery")
			return result, nil
		}
	}

	switch evt.Type {
	case domain.EventCheckoutSessionCompleted:
		clientID := session.Metadata[domain.StripeClientIDKey]
		if clientID == "" {
			log.Info().Str("session_id", session.ID).Msg("completed session has no wallet, left to the redirect")
			return result, nil
		}
		out := s.reconciler.Reconcile(ctx, clientID, domain.CallbackParams{
			SessionID: session.ID,
			Provider:  string(domain.ProviderStripe),
		})
		result.Handled = true
		result.Outcome = out
		log.Info().
			Str("client_id", clientID).
			Str("session_id", session.ID).
			Str("state", string(out.State)).
			Bool("already_processed", out.AlreadyProcessed).
			Msg("checkout session reconciled")

	case domain.EventPaymentIntentSucceeded, domain.EventPaymentIntentFailed:
		var obj stripeIntentObject
		_ = json.Unmarshal(evt.Data.Object, &obj)
		log.Info().Str("payment_intent", obj.ID).Int64("amount", obj.Amount).Msg("payment intent event")

	default:
		log.Debug().Msg("unhandled webhook event")
	}
	return result, nil
}
