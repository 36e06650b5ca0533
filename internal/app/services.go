package app

import (
	"context"

	"storefront-wallet/config"
	"storefront-wallet/internal/adapter/http/stream"
	"storefront-wallet/internal/adapter/provider"
	"storefront-wallet/internal/adapter/provider/paypal"
	"storefront-wallet/internal/adapter/provider/stripe"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/internal/service"
	"storefront-wallet/pkg/logger"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProviderModule builds the payment provider clients.
var ProviderModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config, log zerolog.Logger) (ports.StripeClient, error) {
			return stripe.NewClient(cfg.Stripe, provider.DefaultHTTPClient(), logger.Component(log, "stripe"))
		},
		func(cfg *config.Config, log zerolog.Logger) (ports.PayPalClient, error) {
			return paypal.NewClient(cfg.PayPal, provider.DefaultHTTPClient(), logger.Component(log, "paypal"))
		},
	),
)

// ServiceModule builds the business services.
var ServiceModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config, log zerolog.Logger) *stream.Hub {
			return stream.NewHub(cfg.Server.AllowedOrigins, logger.Component(log, "stream"))
		},
		func(cfg *config.Config) ports.TokenService {
			return service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
		},
		func() ports.SignatureService { return service.NewHMACSignatureService() },
		func() ports.HashService { return service.NewArgon2HashService() },
		newWalletService,
		newStreakService,
		newVerificationService,
		newCheckoutService,
		newReconcileService,
		newSweepService,
		newWebhookService,
		newOrderService,
	),
	fx.Invoke(registerSweepScheduler),
)

func newWalletService(state ports.StateStore, registry ports.IdempotencyStore, hub *stream.Hub, log zerolog.Logger) ports.WalletService {
	return service.NewWalletService(state, registry, hub, logger.Component(log, "wallet"))
}

func newStreakService(cfg *config.Config, state ports.StateStore, wallet ports.WalletService, log zerolog.Logger) (ports.StreakService, error) {
	return service.NewStreakService(cfg.Streak, state, wallet, logger.Component(log, "streak"))
}

func newVerificationService(cfg *config.Config, s ports.StripeClient, p ports.PayPalClient, log zerolog.Logger) ports.VerificationService {
	return service.NewVerificationService(s, p, cfg.Provider.Timeout, logger.Component(log, "verify"))
}

func newCheckoutService(cfg *config.Config, s ports.StripeClient, p ports.PayPalClient, log zerolog.Logger) ports.CheckoutService {
	return service.NewCheckoutService(s, p, service.CheckoutOptions{
		PublicURL: cfg.App.PublicURL,
		Currency:  cfg.App.Currency,
		BrandName: cfg.PayPal.BrandName,
		MinAmount: cfg.Checkout.MinAmount,
		MaxAmount: cfg.Checkout.MaxAmount,
		Timeout:   cfg.Provider.Timeout,
	}, logger.Component(log, "checkout"))
}

func newReconcileService(v ports.VerificationService, registry ports.IdempotencyStore, wallet ports.WalletService, log zerolog.Logger) ports.ReconcileService {
	return service.NewReconcileService(v, registry, wallet, logger.Component(log, "reconcile"))
}

func newSweepService(cfg *config.Config, registry ports.IdempotencyStore, wallet ports.WalletService, log zerolog.Logger) ports.SweepService {
	return service.NewSweepService(cfg.Reconcile, registry, wallet, logger.Component(log, "sweep"))
}

func newWebhookService(
	cfg *config.Config,
	sig ports.SignatureService,
	nonces ports.NonceStore,
	reconciler ports.ReconcileService,
	log zerolog.Logger,
) ports.WebhookService {
	return service.NewWebhookService(cfg.Stripe, sig, nonces, reconciler, logger.Component(log, "webhook"))
}

func newOrderService(wallet ports.WalletService, log zerolog.Logger) ports.OrderService {
	return service.NewOrderService(domain.DefaultCatalog(), wallet, logger.Component(log, "orders"))
}

func registerSweepScheduler(lc fx.Lifecycle, cfg *config.Config, sweeper ports.SweepService, log zerolog.Logger) error {
	sched, err := service.NewSweepScheduler(cfg.Reconcile.SweepInterval, sweeper, logger.Component(log, "sweep"))
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: sched.Start,
		OnStop:  func(context.Context) error { return sched.Stop() },
	})
	return nil
}
