package payments

import (
	"context"
	"os"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeProvider implements Provider over the Stripe SDK. The client is
// constructed once at startup and passed in wherever card payments are
// needed; nothing in this package holds package-level state.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider builds a provider for the given secret key.
func NewStripeProvider(secretKey string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api}
}

// FromEnv returns a StripeProvider from STRIPE_SECRET_KEY, or nil when the
// key is absent. Callers treat nil as "card payments unavailable".
func FromEnv() Provider {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil
	}
	return NewStripeProvider(key)
}

func (p *StripeProvider) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*ProviderIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(pi), nil
}

func (p *StripeProvider) RetrieveIntent(ctx context.Context, id string) (*ProviderIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripeIntent(pi), nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *ProviderIntent {
	return &ProviderIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}
