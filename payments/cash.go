package payments

import (
	"strconv"
	"strings"
	"time"

	"verdant/models"
)

// CashClientSecret is the sentinel secret for cash pseudo intents; the client
// skips the payment UI when it sees this value.
const CashClientSecret = "cash_payment"

const cashIDPrefix = "cash_"

// NewCashIntent fabricates a local intent for a cash-on-delivery checkout.
// It is never registered with the payment processor.
func NewCashIntent(now time.Time, userID string) *models.PaymentIntent {
	return &models.PaymentIntent{
		Kind:            models.IntentCash,
		PaymentIntentID: cashIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + userID,
		ClientSecret:    CashClientSecret,
	}
}

// IntentRef is a payment intent id tagged with its kind. The kind is decided
// here, at the API boundary, and carried through confirmation.
type IntentRef struct {
	Kind models.IntentKind
	ID   string
}

// ParseIntentRef classifies a client-supplied intent id. Cash intent ids are
// local fabrications and carry the cash_ prefix; everything else belongs to
// the processor.
func ParseIntentRef(id string) IntentRef {
	if strings.HasPrefix(id, cashIDPrefix) || id == CashClientSecret {
		return IntentRef{Kind: models.IntentCash, ID: id}
	}
	return IntentRef{Kind: models.IntentCard, ID: id}
}
