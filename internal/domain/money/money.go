// Package money holds the fixed-point arithmetic helpers shared by every
// component that produces a monetary amount. All amounts are
// decimal.Decimal; binary floats never enter a calculation.
//
// Rounding happens at every discount and line boundary, not only at final
// output, so repeated recomputation of the same cart is bit-for-bit stable.
package money

import "github.com/shopspring/decimal"

// Hundred is the percent divisor, shared to avoid re-allocating it on every
// discount evaluation.
var Hundred = decimal.NewFromInt(100)

// Round rounds a monetary amount to two decimal places, half up.
// It is idempotent: Round(Round(x)) == Round(x).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FloorAtZero clamps negative amounts to zero.
func FloorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns the rounded percentage `value` of `base`.
func Percent(base, value decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(value).Div(Hundred))
}
