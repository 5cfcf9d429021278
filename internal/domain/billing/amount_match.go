package billing

import "github.com/shopspring/decimal"

// AmountMatches reports whether an observed amount equals the expected one
// within a tolerance of max(fixed, pct of the expected amount). Monthly
// report checks use it to pair invoices with bank entries whose amounts
// drift by fees or rounding. The import dedupe key never uses it; dedupe
// stays exact.
func AmountMatches(expected, observed decimal.Decimal, fixed, pct float64) bool {
	tolerance := decimal.NewFromFloat(fixed)
	relative := expected.Abs().Mul(decimal.NewFromFloat(pct))
	if relative.GreaterThan(tolerance) {
		tolerance = relative
	}
	return expected.Sub(observed).Abs().LessThanOrEqual(tolerance)
}
