package models

// IntentKind distinguishes cash pseudo intents from card intents held by the
// payment processor. It is decided once when an intent is created or parsed,
// never re-derived downstream.
type IntentKind string

const (
	IntentCash IntentKind = "cash"
	IntentCard IntentKind = "card"
)

// PaymentIntent is the checkout handle returned to the client in phase 1.
// For cash it is fabricated locally and never registered with the processor.
type PaymentIntent struct {
	Kind            IntentKind `json:"-"`
	PaymentIntentID string     `json:"paymentIntentId"`
	ClientSecret    string     `json:"clientSecret"`
}
