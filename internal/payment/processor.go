// Package payment talks to the external payment processor. The processor
// is an opaque collaborator: the engine only creates intents, reads their
// terminal state and never stores card data.
package payment

import "context"

// IntentStatus is the processor-side state of a payment intent.
type IntentStatus string

const (
	IntentRequiresPayment IntentStatus = "requires_payment"
	IntentProcessing      IntentStatus = "processing"
	IntentSucceeded       IntentStatus = "succeeded"
	IntentDeclined        IntentStatus = "declined"
)

// Intent mirrors the processor's payment intent object. Metadata round-trips
// booking context (schedule, date, student, points) so the confirm step never
// trusts client-supplied values.
type Intent struct {
	ID            string            `json:"id"`
	ClientSecret  string            `json:"client_secret"`
	Amount        int64             `json:"amount"`
	Status        IntentStatus      `json:"status"`
	DeclineReason string            `json:"decline_reason,omitempty"`
	Metadata      map[string]string `json:"metadata"`
}

// Processor is the port the booking service depends on.
type Processor interface {
	// CreateIntent registers an authorization request for amount and
	// returns the intent carrying a client-side secret.
	CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (*Intent, error)
	// RetrieveIntent fetches the current state of an intent by id.
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}
