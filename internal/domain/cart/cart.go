// Package cart owns the mutable shopping cart aggregate: its items, the
// cart-level discount, the attached coupons, and the deterministic total
// computation pipeline. A cart is always "dirty until recomputed"; totals
// are derived on read, never stored as the source of truth.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
)

// Status is the cart lifecycle state. checked_out and abandoned are
// terminal; a cart is never resurrected.
type Status string

const (
	StatusActive     Status = "active"
	StatusCheckedOut Status = "checked_out"
	StatusAbandoned  Status = "abandoned"
)

var (
	// ErrNotFound is returned when no cart matches a token.
	ErrNotFound = errors.New("cart not found")
	// ErrNotActive is returned when mutating a checked-out or abandoned cart.
	ErrNotActive = errors.New("cart is not active")
	// ErrOutOfStock is returned when adding a stock-tracked product with no
	// available quantity.
	ErrOutOfStock = errors.New("out of stock")
	// ErrCouponAlreadyApplied is returned on a duplicate coupon attach.
	ErrCouponAlreadyApplied = errors.New("coupon already applied")
	// ErrCouponNotAttached is returned when detaching a coupon the cart
	// does not hold.
	ErrCouponNotAttached = errors.New("coupon not found on this cart")
)

// ItemNotFoundError identifies a missing cart item by id.
type ItemNotFoundError struct {
	ItemID int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %d not found in this cart", e.ItemID)
}

// MinimumOrderError is returned when a requested quantity is below the
// product's minimum order.
type MinimumOrderError struct {
	ProductID int64
	Minimum   int
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order for product %d is %d", e.ProductID, e.Minimum)
}

// Item is a cart line. ProductName and UnitPrice are snapshots taken when
// the item was added or last touched, not a live join: discount validation
// (the fixed-discount cap relative to unit price) always evaluates against
// this snapshot. Checkout re-reads live prices under lock.
type Item struct {
	ID          int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Discount    discount.Spec
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppliedCoupon is a cart↔coupon link. Links keep attachment order; the
// stacking policy applies coupons oldest-link first.
type AppliedCoupon struct {
	LinkID     int64
	Coupon     *coupon.Coupon
	AttachedAt time.Time
}

// Cart is the aggregate root. Token is the stable opaque identifier that
// correlates a client with its one active cart.
type Cart struct {
	ID        int64
	Token     string
	Status    Status
	Items     []Item
	Discount  discount.Spec
	Coupons   []AppliedCoupon
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindItem returns the item with the given id, or nil.
func (c *Cart) FindItem(itemID int64) *Item {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByProduct returns the item for the given product, or nil.
func (c *Cart) FindItemByProduct(productID int64) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// CouponState derives the eligibility state for evaluating coupon c against
// this cart. excludeLink excludes one existing link of the same coupon from
// the per-cart count, which is how checkout re-validation avoids a coupon
// failing over its own attachment.
func (c *Cart) CouponState(cpn *coupon.Coupon, subtotal decimal.Decimal, excludeLink bool) coupon.CartState {
	state := coupon.CartState{Subtotal: subtotal}
	for _, link := range c.Coupons {
		if link.Coupon.ID == cpn.ID {
			state.TimesApplied++
			continue
		}
		state.OtherCoupons++
		if !link.Coupon.Stackable {
			state.HasNonStackable = true
		}
	}
	if excludeLink && state.TimesApplied > 0 {
		state.TimesApplied--
	}
	return state
}

// Repository defines cart persistence. Implementations persist structural
// state only (items, discounts, links); totals are always recomputed.
type Repository interface {
	FindActiveByToken(ctx context.Context, token string) (*Cart, error)
	Create(ctx context.Context) (*Cart, error)

	AddItem(ctx context.Context, cartID int64, item *Item) error
	UpdateItemQuantity(ctx context.Context, itemID int64, qty int) error
	UpdateItemDiscount(ctx context.Context, itemID int64, spec discount.Spec) error
	RemoveItem(ctx context.Context, itemID int64) error
	ClearItems(ctx context.Context, cartID int64) error

	SetCartDiscount(ctx context.Context, cartID int64, spec discount.Spec) error

	AttachCoupon(ctx context.Context, cartID, couponID int64) error
	DetachCoupon(ctx context.Context, linkID int64) error
	ClearCoupons(ctx context.Context, cartID int64) error

	SetStatus(ctx context.Context, cartID int64, status Status) error
}
