package handler

import (
	"net/http"

	"storefront-wallet/internal/adapter/http/middleware"
	"storefront-wallet/internal/adapter/http/stream"
	"storefront-wallet/internal/core/ports"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// StreamPath is the websocket route; it is never compressed.
const StreamPath = "/api/v1/wallet/stream"

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CheckoutSvc    ports.CheckoutService
	VerifySvc      ports.VerificationService
	WebhookSvc     ports.WebhookService
	WalletSvc      ports.WalletService
	ReconcileSvc   ports.ReconcileService
	StreakSvc      ports.StreakService
	OrderSvc       ports.OrderService
	TokenSvc       ports.TokenService
	HashSvc        ports.HashService
	Hub            *stream.Hub          // nil = stream disabled
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	PaymentLimit   middleware.RateLimitRule
	AdminTokenHash string // empty = admin routes not mounted
	AllowedOrigins []string
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// NewHTTPHandler is SetupRouter wrapped in the CORS handler.
func NewHTTPHandler(deps RouterDeps) http.Handler {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         300,
	})(SetupRouter(deps))
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{StreamPath})))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules(deps.PaymentLimit)

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok || rule.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Storefront payment endpoints ---
	paymentHandler := NewPaymentHandler(deps.CheckoutSvc, deps.VerifySvc, deps.WebhookSvc)
	api := r.Group("/api")
	{
		api.POST("/create-payment-session", middleware.OptionalJWT(deps.TokenSvc), rl("payment_session"), paymentHandler.CreateSession)
		api.POST("/verify-payment", rl("verify_payment"), paymentHandler.VerifyPayment)
		api.POST("/webhook", paymentHandler.Webhook)
	}

	v1 := r.Group("/api/v1")

	clientHandler := NewClientHandler(deps.TokenSvc)
	v1.POST("/clients", rl("clients"), clientHandler.CreateClient)

	orderHandler := NewOrderHandler(deps.OrderSvc)
	catalog := v1.Group("/catalog")
	{
		catalog.GET("", orderHandler.Catalog)
		catalog.GET("/quote", orderHandler.Quote)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, false)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.ReconcileSvc, deps.StreakSvc, deps.Hub)

	wallet := v1.Group("/wallet")
	{
		wallet.GET("", jwtAuth, walletHandler.GetWallet)
		wallet.POST("/reconcile", jwtAuth, rl("reconcile"), walletHandler.Reconcile)
		wallet.GET("/streak", jwtAuth, walletHandler.GetStreak)
		wallet.POST("/streak/check", jwtAuth, walletHandler.CheckStreak)
		wallet.GET("/stream", middleware.JWTAuth(deps.TokenSvc, true), walletHandler.Stream)
	}

	v1.POST("/orders", jwtAuth, rl("orders"), orderHandler.PlaceOrder)

	// --- Operator routes ---
	if deps.AdminTokenHash != "" && deps.HashSvc != nil {
		adminHandler := NewAdminHandler(deps.WalletSvc)
		admin := v1.Group("/admin", middleware.AdminAuth(deps.HashSvc, deps.AdminTokenHash, deps.Logger))
		{
			admin.POST("/wallets/:clientId/reset", adminHandler.ResetWallet)
		}
	}

	return r
}
