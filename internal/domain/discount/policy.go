package discount

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// ErrValueNotPositive is returned when a discount value is zero or negative.
var ErrValueNotPositive = errors.New("discount value must be > 0")

// ErrUnknownType is returned for a user-supplied discount type other than
// percent or fixed.
var ErrUnknownType = errors.New("unknown discount type")

// PercentRangeError is returned when a user-supplied percent discount falls
// outside the policy ceiling. The allowed range is echoed in the message.
type PercentRangeError struct {
	Max decimal.Decimal
}

func (e *PercentRangeError) Error() string {
	return fmt.Sprintf("percent discount must be > 0 and ≤ %s", e.Max)
}

// FixedCapError is returned when a user-supplied fixed discount exceeds the
// policy cap. The computed cap is echoed in the message.
type FixedCapError struct {
	Cap decimal.Decimal
}

func (e *FixedCapError) Error() string {
	return fmt.Sprintf("fixed discount must be > 0 and ≤ %s", e.Cap.StringFixed(2))
}

// Policy caps user-facing discount input. It validates and rejects; it never
// silently clamps. The evaluator itself (Spec.Amount) stays permissive so
// already-stored discounts keep computing.
type Policy struct {
	// MaxPercent is the ceiling for percent discounts, in (0, 100].
	MaxPercent decimal.Decimal
	// MaxFixedRate caps a fixed per-unit discount to this fraction of the
	// unit price, e.g. 0.5 allows at most half the unit price.
	MaxFixedRate decimal.Decimal
}

// DefaultPolicy caps percent discounts at 50% and fixed discounts at 50% of
// the unit price.
func DefaultPolicy() Policy {
	return Policy{
		MaxPercent:   decimal.NewFromInt(50),
		MaxFixedRate: decimal.RequireFromString("0.5"),
	}
}

// ValidatePercent checks a percent discount value against the policy ceiling.
func (p Policy) ValidatePercent(value decimal.Decimal) error {
	if !value.IsPositive() || value.GreaterThan(p.MaxPercent) {
		return &PercentRangeError{Max: p.MaxPercent}
	}
	return nil
}

// ValidateFixed checks a fixed discount value against the policy cap derived
// from the unit price the discount applies to.
func (p Policy) ValidateFixed(value, unitPrice decimal.Decimal) error {
	cap := money.Round(unitPrice.Mul(p.MaxFixedRate))
	if !value.IsPositive() || value.GreaterThan(cap) {
		return &FixedCapError{Cap: cap}
	}
	return nil
}

// ValidateSpec validates a user-supplied spec for the given base price.
// Cart-level fixed discounts have no meaningful unit price; pass a negative
// unitPrice to skip the fixed cap and require only a positive value.
func (p Policy) ValidateSpec(s Spec, unitPrice decimal.Decimal) error {
	switch s.Type {
	case TypePercent:
		return p.ValidatePercent(s.Value)
	case TypeFixed:
		if unitPrice.IsNegative() {
			if !s.Value.IsPositive() {
				return ErrValueNotPositive
			}
			return nil
		}
		return p.ValidateFixed(s.Value, unitPrice)
	case TypeNone, "":
		return nil
	default:
		return errors.Wrapf(ErrUnknownType, "type must be %q or %q", TypePercent, TypeFixed)
	}
}
