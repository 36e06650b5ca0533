package service

import (
	"context"
	"time"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// VerificationServiceImpl implements ports.VerificationService. It is
// read-only with respect to the ledger.
type VerificationServiceImpl struct {
	stripe  ports.StripeClient
	paypal  ports.PayPalClient
	timeout time.Duration
	log     zerolog.Logger
}

// NewVerificationService creates a new VerificationServiceImpl.
func NewVerificationService(stripe ports.StripeClient, paypal ports.PayPalClient, timeout time.Duration, log zerolog.Logger) *VerificationServiceImpl {
	return &VerificationServiceImpl{stripe: stripe, paypal: paypal, timeout: timeout, log: log}
}

// Verify asks the provider whether the payment completed.
func (s *VerificationServiceImpl) Verify(ctx context.Context, req domain.VerifyRequest) (*domain.Verification, error) {
	switch req.Provider {
	case domain.ProviderStripe:
		return s.verifyStripe(ctx, req)
	case domain.ProviderPayPal:
		return s.verifyPayPal(ctx, req)
	default:
		return nil, apperror.ErrUnsupportedProvider(string(req.Provider))
	}
}

func (s *VerificationServiceImpl) verifyStripe(ctx context.Context, req domain.VerifyRequest) (*domain.Verification, error) {
	if req.SessionID == "" {
		return nil, apperror.ErrMissingPaymentInfo().WithDetail("sessionId is required for stripe")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sess, err := s.stripe.GetCheckoutSession(ctx, req.SessionID)
	if err != nil {
		return nil, s.fail(ctx, domain.ProviderStripe, err)
	}

	amount := sess.AmountTotal
	if original, ok := sess.OriginalAmount(); ok {
		amount = original
	}

	s.log.Debug().
		Str("session_id", sess.ID).
		Str("payment_status", sess.PaymentStatus).
		Int64("amount", amount).
		Msg("stripe session verified")

	return &domain.Verification{
		Success:        sess.PaymentStatus == domain.StripePaid,
		Amount:         amount,
		PaymentStatus:  sess.PaymentStatus,
		Provider:       domain.ProviderStripe,
		ProviderAmount: sess.AmountTotal,
		ClientID:       sess.Metadata[domain.StripeClientIDKey],
	}, nil
}

func (s *VerificationServiceImpl) verifyPayPal(ctx context.Context, req domain.VerifyRequest) (*domain.Verification, error) {
	orderID := req.PayPalOrderID()
	if orderID == "" {
		return nil, apperror.ErrMissingPaymentInfo().WithDetail("orderId or token is required for paypal")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	order, err := s.paypal.GetOrder(ctx, orderID)
	if err != nil {
		return nil, s.fail(ctx, domain.ProviderPayPal, err)
	}
	if order.Status == domain.PayPalStatusApproved {
		order, err = s.paypal.CaptureOrder(ctx, orderID)
		if err != nil {
			return nil, s.fail(ctx, domain.ProviderPayPal, err)
		}
	}

	reported := order.Amount.IntPart()
	amount := reported
	if original, ok := order.OriginalAmount(); ok {
		amount = original
	}

	s.log.Debug().
		Str("order_id", order.ID).
		Str("status", order.Status).
		Int64("amount", amount).
		Msg("paypal order verified")

	return &domain.Verification{
		Success:        order.Status == domain.PayPalStatusCompleted || order.Status == domain.PayPalStatusApproved,
		Amount:         amount,
		PaymentStatus:  order.Status,
		Provider:       domain.ProviderPayPal,
		ProviderAmount: reported,
	}, nil
}

func (s *VerificationServiceImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *VerificationServiceImpl) fail(ctx context.Context, p domain.Provider, err error) error {
	s.log.Warn().Err(err).Str("provider", string(p)).Msg("provider verification failed")
	return providerError(ctx, p, err)
}
