package payments

import "context"

// Intent statuses reported by the processor. Only the success state permits
// order confirmation.
const (
	IntentStatusSucceeded       = "succeeded"
	IntentStatusProcessing      = "processing"
	IntentStatusRequiresPayment = "requires_payment_method"
)

// ProviderIntent is the processor-side view of a payment intent.
type ProviderIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Metadata     map[string]string
}

// Provider wraps the external payment processor. It is injected into the
// checkout service so tests can substitute a fake; a nil Provider means the
// processor is not configured.
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*ProviderIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*ProviderIntent, error)
}
