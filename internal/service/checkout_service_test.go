package service

import (
	"context"
	"testing"
	"time"

	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type checkoutDeps struct {
	svc    *CheckoutServiceImpl
	stripe *mocks.MockStripeClient
	paypal *mocks.MockPayPalClient
}

func setupCheckout(t *testing.T) *checkoutDeps {
	ctrl := gomock.NewController(t)
	d := &checkoutDeps{
		stripe: mocks.NewMockStripeClient(ctrl),
		paypal: mocks.NewMockPayPalClient(ctrl),
	}
	d.svc = NewCheckoutService(d.stripe, d.paypal, CheckoutOptions{
		PublicURL: "http://localhost:3000/",
		Currency:  "jpy",
		BrandName: "Storefront",
		MinAmount: 100,
		MaxAmount: 1_000_000,
		Timeout:   5 * time.Second,
	}, zerolog.Nop())
	return d
}

func TestCheckout_Stripe(t *testing.T) {
	d := setupCheckout(t)

	d.stripe.EXPECT().CreateCheckoutSession(gomock.Any(), domain.StripeCheckoutParams{
		Amount:      1500,
		Currency:    "jpy",
		ProductName: "Add funds",
		SuccessURL:  "http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}&provider=stripe",
		CancelURL:   "http://localhost:3000/payment-cancel",
		Metadata:    map[string]string{"originalAmount": "1500", "clientId": "c1"},
	}).Return(&domain.StripeSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil)

	sess, err := d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 1500, Provider: domain.ProviderStripe, ClientID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", sess.URL)
	assert.Equal(t, int64(1500), sess.Amount)
}

func TestCheckout_Stripe_AnonymousHasNoClientMetadata(t *testing.T) {
	d := setupCheckout(t)

	d.stripe.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p domain.StripeCheckoutParams) (*domain.StripeSession, error) {
			_, ok := p.Metadata["clientId"]
			assert.False(t, ok)
			return &domain.StripeSession{ID: "cs_2"}, nil
		})

	_, err := d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 100, Provider: domain.ProviderStripe})
	require.NoError(t, err)
}

func TestCheckout_PayPal(t *testing.T) {
	d := setupCheckout(t)

	d.paypal.EXPECT().CreateOrder(gomock.Any(), domain.PayPalOrderParams{
		Amount:    2000,
		Currency:  "jpy",
		ReturnURL: "http://localhost:3000/payment-success?provider=paypal",
		CancelURL: "http://localhost:3000/payment-cancel",
		BrandName: "Storefront",
	}).Return(&domain.PayPalOrder{ID: "5O19", ApproveURL: "https://www.sandbox.paypal.com/checkoutnow?token=5O19"}, nil)

	sess, err := d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 2000, Provider: domain.ProviderPayPal})
	require.NoError(t, err)
	assert.Equal(t, "5O19", sess.OrderID)
	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=5O19", sess.ApprovalURL)
}

func TestCheckout_PayPal_SandboxApproval(t *testing.T) {
	d := setupCheckout(t)

	d.paypal.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(&domain.PayPalOrder{ID: "SANDBOX-1000-1700000000000"}, nil)

	sess, err := d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 1000, Provider: domain.ProviderPayPal})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/payment-success?order_id=SANDBOX-1000-1700000000000&provider=paypal", sess.ApprovalURL)
}

func TestCheckout_AmountValidation(t *testing.T) {
	d := setupCheckout(t)

	_, err := d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 0, Provider: domain.ProviderStripe})
	requireAppError(t, err, "PAY_002")

	_, err = d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 99, Provider: domain.ProviderStripe})
	appErr := requireAppError(t, err, "PAY_002")
	assert.Equal(t, "minimum amount is 100", appErr.Detail)

	_, err = d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 1_000_001, Provider: domain.ProviderPayPal})
	appErr = requireAppError(t, err, "PAY_002")
	assert.Equal(t, "maximum amount is 1000000", appErr.Detail)
}

func TestCheckout_ProviderFailure(t *testing.T) {
	d := setupCheckout(t)

	d.stripe.EXPECT().CreateCheckoutSession(gomock.Any(), gomock.Any()).Return(nil, &domain.ProviderError{
		Provider: domain.ProviderStripe, Kind: domain.ProviderErrConfig, Detail: "stripe.secret_key is not set",
	})

	_, err := d.svc.CreateSession(context.Background(), domain.CheckoutRequest{Amount: 500, Provider: domain.ProviderStripe})
	requireAppError(t, err, "PRV_004")
}
