// Package money holds decimal helpers shared by the pricing rules.
package money

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	// amountLimit bounds stored amounts: ten digits, two of them cents.
	amountLimit = decimal.New(1, 8)
)

// PercentOff returns price reduced by pct percent: price * (1 - pct/100).
// The result is exact; callers round for presentation only.
func PercentOff(price, pct decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Sub(pct.Div(hundred)))
}

// FloorAtZero clamps negative values to zero.
func FloorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// IsPercentage reports whether pct lies within [0, 100] with at most two
// decimal places.
func IsPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred) && hasCents(pct)
}

// IsAmount reports whether d is a storable non-negative amount: below 10^8
// with at most two decimal places.
func IsAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThan(amountLimit) && hasCents(d)
}

// hasCents compares by value, so "10.000" passes.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// Display rounds d to cents for API responses and logs.
func Display(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
