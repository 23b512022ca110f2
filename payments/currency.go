package payments

import "github.com/shopspring/decimal"

// Prices are listed in INR; Stripe settles in USD. The rate is a fixed
// constant, not a live FX lookup — it is recorded on the intent metadata so
// later refund math can use the same rate.
const (
	LocalCurrency      = "inr"
	SettlementCurrency = "usd"
	INRToUSDRate       = 0.012

	// Stripe rejects charges below 50 cents.
	MinChargeMinorUnits int64 = 50
)

// ToSettlementMinorUnits converts an INR amount to USD cents, rounded to the
// nearest cent.
func ToSettlementMinorUnits(amountINR float64) int64 {
	usd := decimal.NewFromFloat(amountINR).Mul(decimal.NewFromFloat(INRToUSDRate))
	return usd.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
