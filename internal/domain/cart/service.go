package cart

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/product"
)

// ErrInvalidQuantity is returned for non-positive requested quantities.
var ErrInvalidQuantity = errors.New("quantity must be >= 1")

// Service encapsulates cart mutation business logic. Totals are never
// persisted; every read recomputes them from structural state.
type Service struct {
	carts    Repository
	products product.Repository
	coupons  coupon.Repository
	policy   discount.Policy
	now      func() time.Time
}

// NewService creates a cart Service with the required dependencies and the
// default discount policy.
func NewService(carts Repository, products product.Repository, coupons coupon.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
		policy:   discount.DefaultPolicy(),
		now:      time.Now,
	}
}

// Resolve returns the active cart for the given token, creating a fresh one
// when the token is empty or unknown. Callers must echo the returned cart's
// token back to the client.
func (s *Service) Resolve(ctx context.Context, token string) (*Cart, error) {
	if token != "" {
		c, err := s.carts.FindActiveByToken(ctx, token)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "find cart")
		}
	}

	c, err := s.carts.Create(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// Totals recomputes the cart's money breakdown. Pure; safe to call any
// number of times.
func (s *Service) Totals(c *Cart) Totals {
	return ComputeTotals(c.Items, c.Discount, c.Coupons)
}

// AddItem adds a product to the cart or bumps an existing line's quantity.
// The requested quantity is raised to the product's minimum order and, for
// stock-tracked products, capped at the currently available quantity.
// Product name and price are snapshotted onto the line.
func (s *Service) AddItem(ctx context.Context, c *Cart, productID int64, qty int) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, product.ErrNotFound
	}

	if qty < p.MinOrder() {
		qty = p.MinOrder()
	}

	existing := c.FindItemByProduct(p.ID)

	if p.StockTracked {
		if p.Quantity <= 0 {
			return nil, ErrOutOfStock
		}
		// Stock already held by this cart line stays claimable.
		current := 0
		if existing != nil {
			current = existing.Quantity
		}
		if max := p.Quantity + current; qty > max {
			qty = max
		}
	}

	if existing != nil {
		newQty := existing.Quantity + qty
		if p.StockTracked {
			if max := p.Quantity + existing.Quantity; newQty > max {
				newQty = max
			}
		}
		if newQty < p.MinOrder() {
			newQty = p.MinOrder()
		}
		if err := s.carts.UpdateItemQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, errors.Wrap(err, "update item quantity")
		}
	} else {
		item := &Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    qty,
			Discount:    discount.None(),
		}
		if err := s.carts.AddItem(ctx, c.ID, item); err != nil {
			return nil, errors.Wrap(err, "add item")
		}
	}

	return s.reload(ctx, c)
}

// UpdateItemQuantity sets an item's quantity. Quantities below the product's
// minimum order are rejected rather than raised; quantities above available
// stock are capped.
func (s *Service) UpdateItemQuantity(ctx context.Context, c *Cart, itemID int64, qty int) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	item := c.FindItem(itemID)
	if item == nil {
		return nil, &ItemNotFoundError{ItemID: itemID}
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if qty < p.MinOrder() {
		return nil, &MinimumOrderError{ProductID: p.ID, Minimum: p.MinOrder()}
	}
	if p.StockTracked {
		if max := p.Quantity + item.Quantity; qty > max {
			qty = max
		}
	}

	if err := s.carts.UpdateItemQuantity(ctx, item.ID, qty); err != nil {
		return nil, errors.Wrap(err, "update item quantity")
	}
	return s.reload(ctx, c)
}

// RemoveItem deletes a single cart line.
func (s *Service) RemoveItem(ctx context.Context, c *Cart, itemID int64) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	item := c.FindItem(itemID)
	if item == nil {
		return nil, &ItemNotFoundError{ItemID: itemID}
	}
	if err := s.carts.RemoveItem(ctx, item.ID); err != nil {
		return nil, errors.Wrap(err, "remove item")
	}
	return s.reload(ctx, c)
}

// ClearItems empties the cart, keeping the same cart token.
func (s *Service) ClearItems(ctx context.Context, c *Cart) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	if err := s.carts.ClearItems(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear items")
	}
	return s.reload(ctx, c)
}

// SetItemDiscount applies a per-item discount after validating it against
// the policy and the line's snapshotted unit price. Out-of-policy values
// are rejected, never clamped.
func (s *Service) SetItemDiscount(ctx context.Context, c *Cart, itemID int64, spec discount.Spec) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	item := c.FindItem(itemID)
	if item == nil {
		return nil, &ItemNotFoundError{ItemID: itemID}
	}
	if err := s.policy.ValidateSpec(spec, item.UnitPrice); err != nil {
		return nil, err
	}
	if err := s.carts.UpdateItemDiscount(ctx, item.ID, spec); err != nil {
		return nil, errors.Wrap(err, "update item discount")
	}
	return s.reload(ctx, c)
}

// ClearItemDiscount resets an item's discount to none. Distinct from a
// discount of zero.
func (s *Service) ClearItemDiscount(ctx context.Context, c *Cart, itemID int64) (*Cart, error) {
	return s.SetItemDiscount(ctx, c, itemID, discount.None())
}

// SetCartDiscount applies the cart-level discount. Percent values go
// through the policy ceiling; fixed values only need to be positive, since
// there is no single unit price to cap against.
func (s *Service) SetCartDiscount(ctx context.Context, c *Cart, spec discount.Spec) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	if err := s.policy.ValidateSpec(spec, decimal.NewFromInt(-1)); err != nil {
		return nil, err
	}
	if err := s.carts.SetCartDiscount(ctx, c.ID, spec); err != nil {
		return nil, errors.Wrap(err, "set cart discount")
	}
	return s.reload(ctx, c)
}

// ClearCartDiscount resets the cart-level discount to none.
func (s *Service) ClearCartDiscount(ctx context.Context, c *Cart) (*Cart, error) {
	return s.SetCartDiscount(ctx, c, discount.None())
}

// AttachCoupon validates a coupon against the cart's current state and links
// it. Duplicate attachments conflict; eligibility failures surface the
// earliest violated rule.
func (s *Service) AttachCoupon(ctx context.Context, c *Cart, code string) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, coupon.ErrNotFound
	}

	cpn, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	for _, link := range c.Coupons {
		if link.Coupon.ID == cpn.ID {
			return nil, ErrCouponAlreadyApplied
		}
	}

	totals := s.Totals(c)
	state := c.CouponState(cpn, totals.BaseAfterCart, false)
	if err := coupon.CheckEligibility(cpn, s.now(), state); err != nil {
		return nil, err
	}

	if err := s.carts.AttachCoupon(ctx, c.ID, cpn.ID); err != nil {
		return nil, errors.Wrap(err, "attach coupon")
	}
	return s.reload(ctx, c)
}

// DetachCoupon removes the link for the given code (case-insensitive).
func (s *Service) DetachCoupon(ctx context.Context, c *Cart, code string) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	for _, link := range c.Coupons {
		if strings.EqualFold(link.Coupon.Code, code) {
			if err := s.carts.DetachCoupon(ctx, link.LinkID); err != nil {
				return nil, errors.Wrap(err, "detach coupon")
			}
			return s.reload(ctx, c)
		}
	}
	return nil, ErrCouponNotAttached
}

// ClearCoupons removes every coupon link from the cart.
func (s *Service) ClearCoupons(ctx context.Context, c *Cart) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	if err := s.carts.ClearCoupons(ctx, c.ID); err != nil {
		return nil, errors.Wrap(err, "clear coupons")
	}
	return s.reload(ctx, c)
}

// Abandon soft-deletes the cart (terminal) and hands back a fresh active
// one so clients never hold a token pointing at a dead cart.
func (s *Service) Abandon(ctx context.Context, c *Cart) (*Cart, error) {
	if err := mustBeActive(c); err != nil {
		return nil, err
	}
	if err := s.carts.SetStatus(ctx, c.ID, StatusAbandoned); err != nil {
		return nil, errors.Wrap(err, "abandon cart")
	}
	fresh, err := s.carts.Create(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create replacement cart")
	}
	return fresh, nil
}

func (s *Service) reload(ctx context.Context, c *Cart) (*Cart, error) {
	fresh, err := s.carts.FindActiveByToken(ctx, c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "reload cart")
	}
	return fresh, nil
}

func mustBeActive(c *Cart) error {
	if c.Status != StatusActive {
		return ErrNotActive
	}
	return nil
}
