package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"storefront-wallet/config"
	"storefront-wallet/internal/adapter/http/handler"
	"storefront-wallet/internal/adapter/http/middleware"
	"storefront-wallet/internal/adapter/http/stream"
	"storefront-wallet/internal/core/ports"
	"storefront-wallet/pkg/logger"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// OpenAPIPath is where the Swagger UI spec is read from.
const OpenAPIPath = "docs/api/openapi.yaml"

// HTTPModule builds the router and runs the HTTP server.
var HTTPModule = fx.Options(
	fx.Provide(newRouterDeps, handler.NewHTTPHandler, newServer),
	fx.Invoke(loadSwaggerSpec, registerServer),
)

type routerParams struct {
	fx.In

	Config       *config.Config
	Backends     *Backends
	Hub          *stream.Hub
	Checkout     ports.CheckoutService
	Verification ports.VerificationService
	Webhooks     ports.WebhookService
	Wallet       ports.WalletService
	Reconcile    ports.ReconcileService
	Streaks      ports.StreakService
	Orders       ports.OrderService
	Tokens       ports.TokenService
	Hashes       ports.HashService
	Logger       zerolog.Logger
}

func newRouterDeps(p routerParams) handler.RouterDeps {
	return handler.RouterDeps{
		CheckoutSvc:    p.Checkout,
		VerifySvc:      p.Verification,
		WebhookSvc:     p.Webhooks,
		WalletSvc:      p.Wallet,
		ReconcileSvc:   p.Reconcile,
		StreakSvc:      p.Streaks,
		OrderSvc:       p.Orders,
		TokenSvc:       p.Tokens,
		HashSvc:        p.Hashes,
		Hub:            p.Hub,
		RateLimitStore: p.Backends.RateLimit,
		PaymentLimit: middleware.RateLimitRule{
			Limit:  p.Config.RateLimit.Requests,
			Window: p.Config.RateLimit.Window,
		},
		AdminTokenHash: p.Config.Admin.TokenHash,
		AllowedOrigins: p.Config.Server.AllowedOrigins,
		HealthCheckers: p.Backends.Checkers,
		Logger:         logger.Component(p.Logger, "http"),
	}
}

// Server is the HTTP server bound on start.
type Server struct {
	srv      *http.Server
	hub      *stream.Hub
	shutdown time.Duration
	log      zerolog.Logger

	ln net.Listener
}

func newServer(cfg *config.Config, h http.Handler, hub *stream.Hub, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		hub:      hub,
		shutdown: cfg.Server.ShutdownTimeout,
		log:      logger.Component(log, "http"),
	}
}

// Addr is the bound address; valid after start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

func (s *Server) start(shutdowner fx.Shutdowner) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info().Str("addr", s.Addr()).Msg("HTTP server listening")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server terminated")
			_ = shutdowner.Shutdown(fx.ExitCode(1))
		}
	}()
	return nil
}

func (s *Server) stop(ctx context.Context) error {
	s.hub.Close()

	shutdownCtx := ctx
	cancel := func() {}
	if _, ok := ctx.Deadline(); !ok && s.shutdown > 0 {
		shutdownCtx, cancel = context.WithTimeout(ctx, s.shutdown)
	}
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

func registerServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return s.start(shutdowner) },
		OnStop:  s.stop,
	})
}

func loadSwaggerSpec(log zerolog.Logger) {
	spec, err := os.ReadFile(OpenAPIPath)
	if err != nil {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
		return
	}
	handler.SetSwaggerSpec(spec)
	log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
}
