// Package coupon implements coupon lookup, eligibility checking, and the
// sequential-remainder stacking policy for cart-level coupon discounts.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercent applies a percentage-based discount to the remaining base.
	TypePercent Type = "percent"
	// TypeFixed applies a fixed monetary discount capped at the remaining base.
	TypeFixed Type = "fixed"
)

var (
	// ErrNotFound is returned when a coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeTaken is returned when creating a coupon whose code already
	// exists (codes are unique case-insensitively).
	ErrCodeTaken = errors.New("coupon code already exists")
)

// Coupon is a promotional code with its discount rule and eligibility
// constraints. Codes are unique case-insensitively.
type Coupon struct {
	ID     int64
	Code   string
	Type   Type
	Value  decimal.Decimal
	Active bool

	// Optional constraints. Nil time bounds are unbounded; nil MaxUses
	// means no global cap.
	StartsAt    *time.Time
	EndsAt      *time.Time
	MinSubtotal decimal.Decimal
	MaxUses     *int
	Uses        int

	// MaxUsesPerCart caps how many times this coupon may be linked to one
	// cart; zero means the default of one.
	MaxUsesPerCart int
	Stackable      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PerCartCap returns the effective per-cart usage cap, defaulting to 1.
func (c *Coupon) PerCartCap() int {
	if c.MaxUsesPerCart < 1 {
		return 1
	}
	return c.MaxUsesPerCart
}

// DiscountAmount computes this coupon's discount against the given base,
// clamped to [0, base]. The base is whatever remains after item discounts,
// the cart discount, and previously applied coupons.
func (c *Coupon) DiscountAmount(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	switch c.Type {
	case TypePercent:
		amt := money.Percent(base, c.Value)
		if amt.GreaterThan(base) {
			amt = money.Round(base)
		}
		return money.FloorAtZero(amt)
	case TypeFixed:
		return money.FloorAtZero(money.Round(decimal.Min(c.Value, base)))
	default:
		return decimal.Zero
	}
}

// Repository provides coupon persistence. Lookups by code are
// case-insensitive.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context, activeOnly bool) ([]Coupon, error)
}
