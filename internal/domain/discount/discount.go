// Package discount implements the pure discount evaluator used for per-item
// and cart-level discounts. Coupon discounts share the same arithmetic but
// carry their own eligibility rules (see the coupon package).
package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Type enumerates the supported discount specifications.
type Type string

const (
	// TypeNone means no discount is set. Clearing a discount resets to
	// TypeNone; it is distinct from a discount of zero.
	TypeNone Type = "none"
	// TypePercent discounts a percentage of the base amount.
	TypePercent Type = "percent"
	// TypeFixed discounts a fixed amount, capped at the base.
	TypeFixed Type = "fixed"
)

// Spec is a discount specification attached to a cart item or a cart.
type Spec struct {
	Type  Type
	Value decimal.Decimal
}

// None is the cleared specification.
func None() Spec {
	return Spec{Type: TypeNone}
}

// IsNone reports whether no discount is set. An empty Type is treated the
// same as TypeNone so zero-valued Specs behave as "no discount".
func (s Spec) IsNone() bool {
	return s.Type == TypeNone || s.Type == ""
}

// Amount computes the discount for the given base amount (a unit price or a
// subtotal). The result is always in [0, base]:
//
//	percent: round(base * value / 100)
//	fixed:   min(value, base)
//	none:    0
//
// Malformed specs (unknown type, non-positive value) evaluate to zero rather
// than failing; validation is a separate, stricter concern (see Policy).
func (s Spec) Amount(base decimal.Decimal) decimal.Decimal {
	if s.IsNone() || !s.Value.IsPositive() || !base.IsPositive() {
		return decimal.Zero
	}

	var amt decimal.Decimal
	switch s.Type {
	case TypePercent:
		amt = money.Percent(base, s.Value)
	case TypeFixed:
		amt = money.Round(decimal.Min(s.Value, base))
	default:
		return decimal.Zero
	}

	if amt.GreaterThan(base) {
		amt = money.Round(base)
	}
	return money.FloorAtZero(amt)
}
