package ports

import (
	"context"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// HashService handles credential hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles client wallet tokens.
type TokenService interface {
	Generate(clientID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ClientID uuid.UUID
}

// BalanceNotifier receives every wallet state change.
type BalanceNotifier interface {
	Publish(clientID string, state domain.WalletState)
}

// --- Service Ports (Business Logic) ---

// WalletService owns the per-client ledgers. Errors are only returned when the
// ledger cannot be loaded; mutation failures are reported in the result.
type WalletService interface {
	State(ctx context.Context, clientID string) (*domain.WalletState, error)
	Credit(ctx context.Context, clientID string, amount int64, key string) (*domain.MutationResult, error)
	Debit(ctx context.Context, clientID string, amount int64, key string) (*domain.MutationResult, error)
	Reset(ctx context.Context, clientID string) (*domain.MutationResult, error)
}

// StreakService tracks login streaks and pays streak bonuses.
type StreakService interface {
	Check(ctx context.Context, clientID string) (*domain.StreakCheck, error)
	State(ctx context.Context, clientID string) (*domain.LoginStreakState, error)
}

// VerificationService normalizes provider confirmations. It never touches the ledger.
type VerificationService interface {
	Verify(ctx context.Context, req domain.VerifyRequest) (*domain.Verification, error)
}

// CheckoutService opens provider payment sessions.
type CheckoutService interface {
	CreateSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
}

// ReconcileService applies confirmed external payments to the ledger at most once.
type ReconcileService interface {
	Reconcile(ctx context.Context, clientID string, params domain.CallbackParams) *domain.ReconcileOutcome
}

// SweepService recovers registry reservations whose credit never landed.
type SweepService interface {
	Sweep(ctx context.Context) (int, error)
}

// WebhookService handles provider event deliveries.
type WebhookService interface {
	HandleStripeEvent(ctx context.Context, payload []byte, signatureHeader string) (*domain.WebhookResult, error)
}

// OrderService prices and places catalog orders.
type OrderService interface {
	Catalog() []domain.CatalogItem
	Quote(serviceID string, quantity int) (*domain.Quote, error)
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error)
}
