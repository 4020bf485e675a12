package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status tracks an order through its post-checkout lifecycle. Orders are
// created pending; later transitions are driven by fulfillment tooling.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFulfilled, StatusCancelled:
		return true
	}
	return false
}

// Customer is the contact snapshot frozen onto an order at checkout.
type Customer struct {
	Name    string
	Phone   string
	Email   string
	Address map[string]any
}

// Money is the order's frozen totals breakdown.
type Money struct {
	Subtotal           decimal.Decimal
	ItemsDiscountTotal decimal.Decimal
	CartDiscountAmount decimal.Decimal
	CouponTotal        decimal.Decimal
	Total              decimal.Decimal
}

// Item is one line of an order, a permanent snapshot of the cart line and
// its per-unit pricing at checkout time.
type Item struct {
	ID             int64
	ProductID      int64
	Name           string
	UnitPrice      decimal.Decimal
	Discount       discount.Spec
	UnitDiscount   decimal.Decimal
	UnitFinalPrice decimal.Decimal
	Quantity       int
	LineTotal      decimal.Decimal
}

// Order is an immutable checkout snapshot. Only Status changes after
// creation.
type Order struct {
	ID        int64
	Code      string
	Status    Status
	Customer  Customer
	Money     Money
	CartToken string
	Items     []Item
	CreatedAt time.Time
}

// ListFilter narrows and pages an order listing. Zero-value fields are
// ignored.
type ListFilter struct {
	Status  Status
	Phone   string
	Email   string
	Code    string
	Start   *time.Time
	End     *time.Time
	Page    int
	PerPage int

	// normalized guards against the end-bound extension compounding when
	// Normalize is applied in more than one layer.
	normalized bool
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Normalize clamps paging to sane bounds and makes End inclusive of the
// whole day it names. Applying it again is a no-op.
func (f ListFilter) Normalize() ListFilter {
	if f.normalized {
		return f
	}
	f.normalized = true
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	if f.End != nil {
		end := f.End.AddDate(0, 0, 1)
		f.End = &end
	}
	return f
}

// Offset returns the row offset for the normalized page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// Repository defines read access to persisted orders. Orders are written
// only inside the checkout transaction.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	ListByPhone(ctx context.Context, phone string, limit int) ([]Order, error)
}
