package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// PayPalCustomIDPrefix encodes the requested amount in a PayPal order's custom_id.
	PayPalCustomIDPrefix = "original_amount_"
	// SandboxOrderPrefix marks locally simulated PayPal orders: SANDBOX-<amount>-<ms>.
	SandboxOrderPrefix = "SANDBOX-"
	// SandboxDefaultAmount is used when a sandbox id carries no parsable amount.
	SandboxDefaultAmount int64 = 1000
	// SandboxMaxAmount caps the amount a sandbox id may claim.
	SandboxMaxAmount int64 = 1_000_000
	// StripeOriginalAmountKey is the checkout-session metadata key for the requested amount.
	StripeOriginalAmountKey = "originalAmount"
	// StripeClientIDKey ties a checkout session to a wallet for webhook crediting.
	StripeClientIDKey = "clientId"
	// StripePaid is the payment_status of a settled checkout session.
	StripePaid = "paid"
)

// PayPal order statuses.
const (
	PayPalStatusCreated   = "CREATED"
	PayPalStatusApproved  = "APPROVED"
	PayPalStatusCompleted = "COMPLETED"
)

// VerifyRequest carries provider-specific confirmation identifiers.
type VerifyRequest struct {
	Provider  Provider
	SessionID string
	OrderID   string
	Token     string
	PayerID   string
}

// PayPalOrderID resolves the effective PayPal order id; the redirect token substitutes for it.
func (r VerifyRequest) PayPalOrderID() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.Token
}

// Verification is the provider-independent confirmation result.
type Verification struct {
	Success        bool     `json:"success"`
	Amount         int64    `json:"amount"`
	PaymentStatus  string   `json:"paymentStatus"`
	Provider       Provider `json:"provider"`
	ProviderAmount int64    `json:"providerAmount"` // Total as reported by the provider
	ClientID       string   `json:"-"`              // Wallet the checkout was opened for, if recorded
}

// CheckoutRequest asks a provider for a hosted payment page.
type CheckoutRequest struct {
	Amount   int64
	Provider Provider
	ClientID string // Optional; lets webhooks credit the right wallet
}

// CheckoutSession is what the storefront needs to redirect the buyer.
type CheckoutSession struct {
	Provider    Provider
	Amount      int64
	SessionID   string // Stripe
	URL         string // Stripe hosted page
	OrderID     string // PayPal
	ApprovalURL string // PayPal
}

// StripeCheckoutParams describes a checkout session to create.
type StripeCheckoutParams struct {
	Amount      int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// StripeSession is the subset of a Stripe checkout session the wallet reads.
type StripeSession struct {
	ID            string
	URL           string
	Status        string
	PaymentStatus string
	Currency      string
	AmountTotal   int64
	Metadata      map[string]string
}

// OriginalAmount returns the amount recorded at session creation, if any.
func (s *StripeSession) OriginalAmount() (int64, bool) {
	raw, ok := s.Metadata[StripeOriginalAmountKey]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// PayPalOrderParams describes an order to create.
type PayPalOrderParams struct {
	Amount    int64
	Currency  string
	ReturnURL string
	CancelURL string
	BrandName string
}

// PayPalOrder is the subset of a PayPal order the wallet reads.
type PayPalOrder struct {
	ID         string
	Status     string
	Amount     decimal.Decimal // purchase_units[0].amount.value
	CustomID   string
	ApproveURL string
}

// OriginalAmount decodes the custom_id amount, if present.
func (o *PayPalOrder) OriginalAmount() (int64, bool) {
	if !strings.HasPrefix(o.CustomID, PayPalCustomIDPrefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(o.CustomID, PayPalCustomIDPrefix), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// PayPalCustomID encodes amount for an order's custom_id.
func PayPalCustomID(amount int64) string {
	return PayPalCustomIDPrefix + strconv.FormatInt(amount, 10)
}

// IsSandboxOrder reports whether id names a locally simulated order.
func IsSandboxOrder(id string) bool {
	return strings.HasPrefix(id, SandboxOrderPrefix)
}

// SandboxOrderID mints a simulated order id.
func SandboxOrderID(amount int64, unixMillis int64) string {
	return fmt.Sprintf("%s%d-%d", SandboxOrderPrefix, amount, unixMillis)
}

// SandboxOrderAmount extracts the amount segment of a simulated order id.
func SandboxOrderAmount(id string) int64 {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return SandboxDefaultAmount
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || n <= 0 || n > SandboxMaxAmount {
		return SandboxDefaultAmount
	}
	return n
}

// ProviderErrorKind classifies provider call failures.
type ProviderErrorKind string

const (
	ProviderErrTransport ProviderErrorKind = "transport"
	ProviderErrTimeout   ProviderErrorKind = "timeout"
	ProviderErrStatus    ProviderErrorKind = "status" // non-2xx
	ProviderErrParse     ProviderErrorKind = "parse"  // response was not the expected JSON
	ProviderErrConfig    ProviderErrorKind = "config"
)

// ProviderError is returned by provider adapters.
type ProviderError struct {
	Provider   Provider
	Kind       ProviderErrorKind
	StatusCode int
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
