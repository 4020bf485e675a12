// Package checkout turns an active cart into an immutable order inside a
// single storage transaction: product rows are locked in canonical order,
// quantities and prices are re-validated against live data, totals are
// recomputed, stock is decremented, and the cart is closed. Any failure
// rolls the whole transaction back.
package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// Validation sentinels raised before any storage work happens.
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCustomerRequired = errors.New("customer name and phone are required")
)

// ProductUnavailableError indicates a cart references a product that no
// longer exists or was deactivated.
type ProductUnavailableError struct {
	ProductID int64
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %d unavailable", e.ProductID)
}

// InsufficientStockError indicates the locked stock no longer covers the
// cart line.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("requested qty for %s not available: want %d, have %d",
		e.Name, e.Requested, e.Available)
}

// MinimumOrderError indicates a cart line slipped below the product's
// current minimum order quantity.
type MinimumOrderError struct {
	ProductID int64
	Name      string
	Minimum   int
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order for %s is %d", e.Name, e.Minimum)
}

// CouponIneligibleError indicates an attached coupon failed re-validation
// against the live cart state.
type CouponIneligibleError struct {
	Code string
	Err  error
}

func (e *CouponIneligibleError) Error() string {
	return fmt.Sprintf("coupon %q invalid: %v", e.Code, e.Err)
}

func (e *CouponIneligibleError) Unwrap() error { return e.Err }

// Tx is the set of storage operations available inside the checkout
// transaction.
type Tx interface {
	// LockProducts acquires row locks on the given products in ascending
	// id order and returns the locked rows.
	LockProducts(ctx context.Context, ids []int64) ([]product.Product, error)
	// CreateOrder persists the order and its items, assigning o.ID.
	CreateOrder(ctx context.Context, o *order.Order) error
	// DecrementStock subtracts qty from the product's stock. It fails if
	// the remaining quantity would go negative.
	DecrementStock(ctx context.Context, productID int64, qty int) error
	// CloseCart marks the cart checked_out and detaches its items and
	// coupon links.
	CloseCart(ctx context.Context, cartID int64) error
}

// Store opens checkout transactions. The callback's error aborts and rolls
// back the transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// PaymentGateway charges an order after the checkout transaction commits.
// Pay-on-delivery orders skip the gateway entirely.
type PaymentGateway interface {
	Charge(ctx context.Context, o *order.Order, method string) error
}

// NoopGateway accepts every charge. It stands in until a real gateway is
// wired.
type NoopGateway struct{}

func (NoopGateway) Charge(context.Context, *order.Order, string) error { return nil }

// PaymentMethodCOD is pay-on-delivery, the default when the request names
// no method.
const PaymentMethodCOD = "cod"

// Request carries the checkout input.
type Request struct {
	Customer      order.Customer
	PaymentMethod string
}

// Orchestrator runs checkouts.
type Orchestrator struct {
	store   Store
	gateway PaymentGateway
	now     func() time.Time
}

// New creates an Orchestrator. A nil gateway disables payment collection.
func New(store Store, gateway PaymentGateway) *Orchestrator {
	if gateway == nil {
		gateway = NoopGateway{}
	}
	return &Orchestrator{
		store:   store,
		gateway: gateway,
		now:     time.Now,
	}
}

// Checkout converts the cart into an order. On success the order snapshot
// is returned and the cart is closed; on any validation or storage failure
// nothing is persisted.
func (o *Orchestrator) Checkout(ctx context.Context, c *cart.Cart, req Request) (*order.Order, error) {
	if c.Status != cart.StatusActive {
		return nil, cart.ErrNotActive
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(req.Customer.Name) == "" || strings.TrimSpace(req.Customer.Phone) == "" {
		return nil, ErrCustomerRequired
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = PaymentMethodCOD
	}

	var placed *order.Order
	err := o.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockProducts(ctx, distinctProductIDs(c.Items))
		if err != nil {
			return errors.Wrap(err, "lock products")
		}
		byID := make(map[int64]*product.Product, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		liveItems, err := revalidateItems(c.Items, byID)
		if err != nil {
			return err
		}

		totals := cart.ComputeTotals(liveItems, c.Discount, c.Coupons)
		if err := o.revalidateCoupons(c, totals.BaseAfterCart); err != nil {
			return err
		}

		placed = o.materialize(c, liveItems, totals, req.Customer)
		if err := tx.CreateOrder(ctx, placed); err != nil {
			return errors.Wrap(err, "create order")
		}

		for _, it := range liveItems {
			p := byID[it.ProductID]
			if !p.StockTracked {
				continue
			}
			if err := tx.DecrementStock(ctx, p.ID, it.Quantity); err != nil {
				return errors.Wrapf(err, "decrement stock for product %d", p.ID)
			}
		}

		if err := tx.CloseCart(ctx, c.ID); err != nil {
			return errors.Wrap(err, "close cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if method != PaymentMethodCOD {
		if err := o.gateway.Charge(ctx, placed, method); err != nil {
			// The order is committed; payment is retried out of band.
			return placed, errors.Wrap(err, "charge payment")
		}
	}
	return placed, nil
}

// distinctProductIDs returns the cart's product ids deduplicated and sorted
// ascending so every checkout locks rows in the same order.
func distinctProductIDs(items []cart.Item) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// revalidateItems checks every cart line against the locked product rows
// and returns copies repriced at the products' live prices.
func revalidateItems(items []cart.Item, byID map[int64]*product.Product) ([]cart.Item, error) {
	live := make([]cart.Item, len(items))
	for i, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.Active {
			return nil, &ProductUnavailableError{ProductID: it.ProductID}
		}
		if it.Quantity < p.MinOrder() {
			return nil, &MinimumOrderError{ProductID: p.ID, Name: p.Name, Minimum: p.MinOrder()}
		}
		if p.StockTracked && it.Quantity > p.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: it.Quantity,
				Available: p.Quantity,
			}
		}
		live[i] = it
		live[i].UnitPrice = p.Price
		live[i].ProductName = p.Name
	}
	return live, nil
}

// revalidateCoupons reruns eligibility for every attached coupon against
// the freshly computed base. Each coupon's own link is excluded from its
// per-cart count; only additional applications beyond the existing one
// would breach the cap.
func (o *Orchestrator) revalidateCoupons(c *cart.Cart, base decimal.Decimal) error {
	now := o.now()
	for _, link := range c.Coupons {
		state := c.CouponState(link.Coupon, base, true)
		if err := coupon.CheckEligibility(link.Coupon, now, state); err != nil {
			return &CouponIneligibleError{Code: link.Coupon.Code, Err: err}
		}
	}
	return nil
}

// materialize freezes the computed totals into an order snapshot.
func (o *Orchestrator) materialize(c *cart.Cart, live []cart.Item, totals cart.Totals, customer order.Customer) *order.Order {
	now := o.now()
	items := make([]order.Item, len(totals.Items))
	for i, it := range totals.Items {
		items[i] = order.Item{
			ProductID:      it.ProductID,
			Name:           live[i].ProductName,
			UnitPrice:      it.UnitPrice,
			Discount:       live[i].Discount,
			UnitDiscount:   it.UnitDiscount,
			UnitFinalPrice: it.UnitFinal,
			Quantity:       it.Quantity,
			LineTotal:      it.LineTotal,
		}
	}

	return &order.Order{
		Code:     order.GenerateCode(now),
		Status:   order.StatusPending,
		Customer: customer,
		Money: order.Money{
			Subtotal:           totals.SubtotalBefore,
			ItemsDiscountTotal: totals.ItemsDiscountTotal,
			CartDiscountAmount: totals.CartDiscountAmount,
			CouponTotal:        totals.CouponTotal,
			Total:              totals.GrandTotal,
		},
		CartToken: c.Token,
		Items:     items,
		CreatedAt: now,
	}
}
