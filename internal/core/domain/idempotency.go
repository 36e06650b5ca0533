package domain

import (
	"strings"
	"time"
)

// IdempotencyStatus is the lifecycle of a registry key.
type IdempotencyStatus string

const (
	// IdempotencyReserved marks a verified payment whose credit may not have landed yet.
	IdempotencyReserved IdempotencyStatus = "reserved"
	// IdempotencyApplied marks a key whose mutation is in the ledger.
	IdempotencyApplied IdempotencyStatus = "applied"
)

// IdempotencyRecord is one entry of the processed-transaction registry.
// Records are never deleted.
type IdempotencyRecord struct {
	Key        string            `json:"key"` // Format: "client_id:identifier"
	ClientID   string            `json:"client_id"`
	Identifier string            `json:"identifier"`
	Kind       MutationKind      `json:"kind"`
	Source     string            `json:"source"`
	Amount     int64             `json:"amount"`
	Status     IdempotencyStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// IsApplied reports whether the record's mutation reached the ledger.
func (r *IdempotencyRecord) IsApplied() bool {
	return r != nil && r.Status == IdempotencyApplied
}

// BuildIdempotencyKey constructs the standard key format.
func BuildIdempotencyKey(clientID, identifier string) string {
	return clientID + ":" + identifier
}

// PaymentClaimKey is the registry key binding an external payment to the
// first wallet that reconciled it.
func PaymentClaimKey(identifier string) string {
	return "payment:" + identifier
}

// SourceOf names the origin of an identifier from its prefix.
func SourceOf(identifier string) string {
	switch {
	case strings.HasPrefix(identifier, string(ProviderStripe)+"-"):
		return string(ProviderStripe)
	case strings.HasPrefix(identifier, string(ProviderPayPal)+"-"):
		return string(ProviderPayPal)
	case strings.HasPrefix(identifier, StreakBonusPrefix):
		return "login-streak"
	case strings.HasPrefix(identifier, OrderKeyPrefix):
		return "order"
	default:
		return "manual"
	}
}
