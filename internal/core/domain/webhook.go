package domain

import "encoding/json"

// Stripe event types the webhook acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

// WebhookEvent is a provider event envelope.
type WebhookEvent struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Object json.RawMessage `json:"-"`
}

// WebhookResult reports what the webhook did with an event.
type WebhookResult struct {
	Received bool              `json:"received"`
	Type     string            `json:"type"`
	Handled  bool              `json:"handled"`
	Outcome  *ReconcileOutcome `json:"outcome,omitempty"`
}
