package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Provider is an external payment processor.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayPal Provider = "paypal"
)

// DefaultProvider is assumed when a caller omits the provider tag.
const DefaultProvider = ProviderStripe

// ParseProvider normalizes a provider tag. Empty input yields DefaultProvider.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultProvider, nil
	case string(ProviderStripe):
		return ProviderStripe, nil
	case string(ProviderPayPal):
		return ProviderPayPal, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", s)
	}
}

// DisplayName is the provider name shown to users.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderPayPal:
		return "PayPal"
	case ProviderStripe:
		return "Stripe"
	default:
		return string(p)
	}
}

// TransactionStatus represents the lifecycle state of an external payment.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one external payment attempt as the wallet sees it.
type Transaction struct {
	Identifier string            `json:"identifier"` // "<provider>-<providerSpecificId>"
	Amount     int64             `json:"amount"`
	Provider   Provider          `json:"provider"`
	Status     TransactionStatus `json:"status"`
}

// CanonicalIdentifier builds the cross-provider key for a provider-specific id.
func CanonicalIdentifier(p Provider, providerID string) string {
	return string(p) + "-" + providerID
}

// NewTransactionID mints an id for a ledger mutation, e.g. "credit-<uuid>".
func NewTransactionID(kind MutationKind) string {
	return string(kind) + "-" + uuid.NewString()
}
