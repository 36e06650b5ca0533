package domain

import (
	"errors"
	"time"
)

// ErrMissingPaymentInfo is returned when callback parameters name no payment.
var ErrMissingPaymentInfo = errors.New("missing payment information")

// CallbackParams are the query parameters of a provider redirect.
type CallbackParams struct {
	SessionID string
	OrderID   string
	Token     string
	PayerID   string
	Provider  string
}

// Identifier derives the provider and canonical transaction identifier.
func (p CallbackParams) Identifier() (Provider, string, error) {
	provider, err := ParseProvider(p.Provider)
	if err != nil {
		return "", "", err
	}

	switch provider {
	case ProviderPayPal:
		if p.OrderID != "" {
			return provider, CanonicalIdentifier(provider, p.OrderID), nil
		}
		if p.Token != "" {
			return provider, CanonicalIdentifier(provider, p.Token), nil
		}
	case ProviderStripe:
		if p.SessionID != "" {
			return provider, CanonicalIdentifier(provider, p.SessionID), nil
		}
	}
	return "", "", ErrMissingPaymentInfo
}

// VerifyRequest converts callback parameters into a bridge request.
func (p CallbackParams) VerifyRequest(provider Provider) VerifyRequest {
	return VerifyRequest{
		Provider:  provider,
		SessionID: p.SessionID,
		OrderID:   p.OrderID,
		Token:     p.Token,
		PayerID:   p.PayerID,
	}
}

// ReconcileState is a step of the reconciliation state machine.
type ReconcileState string

const (
	ReconcileIdle             ReconcileState = "idle"
	ReconcileChecking         ReconcileState = "checking"
	ReconcileAlreadyProcessed ReconcileState = "already_processed"
	ReconcileVerifying        ReconcileState = "verifying"
	ReconcileDone             ReconcileState = "done"
	ReconcileFailed           ReconcileState = "failed"
)

// IsTerminal returns true if the state is final.
func (s ReconcileState) IsTerminal() bool {
	return s == ReconcileDone || s == ReconcileFailed
}

// FailureReason explains a failed reconciliation.
type FailureReason string

const (
	FailureMissingPaymentInfo FailureReason = "missing_payment_info"
	FailurePaymentIncomplete  FailureReason = "payment_incomplete"
)

// ReconcileOutcome is the terminal view of one reconciliation.
type ReconcileOutcome struct {
	State            ReconcileState  `json:"state"`
	Identifier       string          `json:"identifier,omitempty"`
	Provider         Provider        `json:"provider,omitempty"`
	Amount           int64           `json:"amount"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
	ProcessedAt      time.Time       `json:"processedAt"`
	Credit           *MutationResult `json:"credit,omitempty"`
	Balance          int64           `json:"balance"`
	Failure          FailureReason   `json:"failure,omitempty"`
	Message          string          `json:"message"`
	Err              error           `json:"-"`
}

// Succeeded reports whether the payment is confirmed and accounted for.
func (o *ReconcileOutcome) Succeeded() bool {
	return o != nil && o.State == ReconcileDone
}
