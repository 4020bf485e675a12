package coupon

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Eligibility failures, one per check. The checks run in a fixed order and
// short-circuit at the first failure, so callers can rely on the returned
// error identifying the earliest violated rule.
var (
	// ErrMalformed means the coupon record itself is invalid (bad type,
	// non-positive value, percent above 100). Malformed coupons fail closed.
	ErrMalformed = errors.New("coupon is malformed")
	// ErrInactive means the coupon's active flag is off.
	ErrInactive = errors.New("coupon is inactive")
	// ErrNotStarted means the current time precedes the activity window.
	ErrNotStarted = errors.New("coupon is not active yet")
	// ErrExpired means the current time is past the activity window.
	ErrExpired = errors.New("coupon has expired")
	// ErrPerCartLimit means the coupon is already applied to this cart up to
	// its per-cart cap.
	ErrPerCartLimit = errors.New("coupon already applied maximum times for this cart")
	// ErrExhausted means the coupon's global usage cap is spent. Global usage
	// accounting is maintained externally; this check only refuses to apply
	// an already-exhausted coupon.
	ErrExhausted = errors.New("coupon exhausted")
	// ErrNotStackable means a non-stackable coupon would coexist with other
	// coupons on the cart, in either direction.
	ErrNotStackable = errors.New("coupon cannot be combined with other coupons")
)

// MinSubtotalError is returned when the cart's subtotal is below the
// coupon's minimum. The required subtotal is echoed in the message.
type MinSubtotalError struct {
	Required decimal.Decimal
}

func (e *MinSubtotalError) Error() string {
	return fmt.Sprintf("subtotal must be ≥ %s", e.Required.StringFixed(2))
}

// CartState is the snapshot of a cart that eligibility is evaluated against.
// Callers compute it; the check itself stays a stateless function.
type CartState struct {
	// Subtotal is the cart total after item-level and cart-level discounts,
	// before any coupons.
	Subtotal decimal.Decimal
	// TimesApplied counts existing links of the evaluated coupon on this
	// cart. At attach time this is the current link count; at checkout
	// re-validation the link under test is excluded so a legitimately
	// attached coupon does not trip over its own link.
	TimesApplied int
	// OtherCoupons counts coupons on the cart other than the evaluated one.
	OtherCoupons int
	// HasNonStackable reports whether any of those other coupons is
	// non-stackable.
	HasNonStackable bool
}

// CheckEligibility validates a coupon against a cart's state, performing the
// checks in order and short-circuiting at the first failure:
//
//  1. structural validity
//  2. active flag
//  3. activity window
//  4. minimum subtotal
//  5. per-cart usage cap
//  6. global usage cap (advisory; accounting is external)
//  7. stackability
func CheckEligibility(c *Coupon, now time.Time, state CartState) error {
	if err := checkStructure(c); err != nil {
		return err
	}
	if !c.Active {
		return ErrInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrNotStarted
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return ErrExpired
	}
	if c.MinSubtotal.IsPositive() && state.Subtotal.LessThan(c.MinSubtotal) {
		return &MinSubtotalError{Required: c.MinSubtotal}
	}
	if state.TimesApplied >= c.PerCartCap() {
		return ErrPerCartLimit
	}
	if c.MaxUses != nil && c.Uses >= *c.MaxUses {
		return ErrExhausted
	}
	if state.OtherCoupons > 0 && (!c.Stackable || state.HasNonStackable) {
		return ErrNotStackable
	}
	return nil
}

// ValidateStructure checks that the coupon record itself is well formed:
// a known type, a positive value, and percent values within 0..100.
func ValidateStructure(c *Coupon) error {
	return checkStructure(c)
}

func checkStructure(c *Coupon) error {
	if c.Type != TypePercent && c.Type != TypeFixed {
		return ErrMalformed
	}
	if !c.Value.IsPositive() {
		return ErrMalformed
	}
	if c.Type == TypePercent && c.Value.GreaterThan(money.Hundred) {
		return ErrMalformed
	}
	return nil
}
