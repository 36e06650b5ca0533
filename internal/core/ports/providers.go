package ports

import (
	"context"

	"storefront-wallet/internal/core/domain"
)

// StripeClient talks to the Stripe Checkout API.
type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, params domain.StripeCheckoutParams) (*domain.StripeSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.StripeSession, error)
}

// PayPalClient talks to the PayPal Orders v2 API.
type PayPalClient interface {
	CreateOrder(ctx context.Context, params domain.PayPalOrderParams) (*domain.PayPalOrder, error)
	GetOrder(ctx context.Context, orderID string) (*domain.PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*domain.PayPalOrder, error)
}
