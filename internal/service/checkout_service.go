package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// CheckoutOptions configures hosted payment pages.
type CheckoutOptions struct {
	PublicURL   string // Storefront origin used for return URLs
	Currency    string
	BrandName   string
	ProductName string
	MinAmount   int64
	MaxAmount   int64 // Zero means no upper bound
	Timeout     time.Duration
}

// CheckoutServiceImpl implements ports.CheckoutService.
type CheckoutServiceImpl struct {
	stripe ports.StripeClient
	paypal ports.PayPalClient
	opts   CheckoutOptions
	log    zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(stripe ports.StripeClient, paypal ports.PayPalClient, opts CheckoutOptions, log zerolog.Logger) *CheckoutServiceImpl {
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	if opts.ProductName == "" {
		opts.ProductName = "Add funds"
	}
	return &CheckoutServiceImpl{stripe: stripe, paypal: paypal, opts: opts, log: log}
}

// CreateSession opens a Stripe checkout session or a PayPal order.
func (s *CheckoutServiceImpl) CreateSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Amount < s.opts.MinAmount {
		return nil, apperror.ErrInvalidAmount().WithDetail("minimum amount is " + strconv.FormatInt(s.opts.MinAmount, 10))
	}

	if s.opts.MaxAmount > 0 && req.Amount > s.opts.MaxAmount {
		return nil, apperror.ErrInvalidAmount().WithDetail("maximum amount is " + strconv.FormatInt(s.opts.MaxAmount, 10))
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	switch req.Provider {
	case domain.ProviderStripe:
		return s.createStripe(ctx, req)
	case domain.ProviderPayPal:
		return s.createPayPal(ctx, req)
	default:
		return nil, apperror.ErrUnsupportedProvider(string(req.Provider))
	}
}

func (s *CheckoutServiceImpl) createStripe(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	metadata := map[string]string{
		domain.StripeOriginalAmountKey: strconv.FormatInt(req.Amount, 10),
	}
	if req.ClientID != "" {
		metadata[domain.StripeClientIDKey] = req.ClientID
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, domain.StripeCheckoutParams{
		Amount:      req.Amount,
		Currency:    s.opts.Currency,
		ProductName: s.opts.ProductName,
		// Stripe substitutes the literal placeholder; it must stay unescaped.
		SuccessURL: s.opts.PublicURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}&provider=stripe",
		CancelURL:  s.opts.PublicURL + "/payment-cancel",
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("amount", req.Amount).Msg("create stripe session")
		return nil, providerError(ctx, domain.ProviderStripe, err)
	}

	s.log.Info().Str("session_id", sess.ID).Int64("amount", req.Amount).Msg("stripe session created")
	return &domain.CheckoutSession{
		Provider:  domain.ProviderStripe,
		Amount:    req.Amount,
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}

func (s *CheckoutServiceImpl) createPayPal(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	order, err := s.paypal.CreateOrder(ctx, domain.PayPalOrderParams{
		Amount:    req.Amount,
		Currency:  s.opts.Currency,
		ReturnURL: s.opts.PublicURL + "/payment-success?provider=paypal",
		CancelURL: s.opts.PublicURL + "/payment-cancel",
		BrandName: s.opts.BrandName,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("amount", req.Amount).Msg("create paypal order")
		return nil, providerError(ctx, domain.ProviderPayPal, err)
	}

	approval := order.ApproveURL
	if domain.IsSandboxOrder(order.ID) {
		q := url.Values{}
		q.Set("order_id", order.ID)
		q.Set("provider", string(domain.ProviderPayPal))
		approval = s.opts.PublicURL + "/payment-success?" + q.Encode()
	}

	s.log.Info().Str("order_id", order.ID).Int64("amount", req.Amount).Msg("paypal order created")
	return &domain.CheckoutSession{
		Provider:    domain.ProviderPayPal,
		Amount:      req.Amount,
		OrderID:     order.ID,
		ApprovalURL: approval,
	}, nil
}
