package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
)

const (
	getActiveCartByTokenSQL = `SELECT id, token, status, discount_type, discount_value, created_at, updated_at
		FROM carts WHERE token = $1 AND status = 'active'`

	insertCartSQL = `INSERT INTO carts (token) VALUES ($1)
		RETURNING id, token, status, discount_type, discount_value, created_at, updated_at`

	listCartItemsSQL = `SELECT id, product_id, product_name, unit_price, quantity, discount_type, discount_value,
			created_at, updated_at
		FROM cart_items WHERE cart_id = $1 ORDER BY id`

	listCartCouponsSQL = `SELECT cc.id, cc.attached_at, ` + prefixedCouponColumns + `
		FROM cart_coupons cc JOIN coupons c ON c.id = cc.coupon_id
		WHERE cc.cart_id = $1 ORDER BY cc.attached_at, cc.id`

	insertCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, product_name, unit_price, quantity,
			discount_type, discount_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	updateItemQuantitySQL = `UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1`

	updateItemDiscountSQL = `UPDATE cart_items SET discount_type = $2, discount_value = $3, updated_at = now()
		WHERE id = $1`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE id = $1`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	setCartDiscountSQL = `UPDATE carts SET discount_type = $2, discount_value = $3, updated_at = now()
		WHERE id = $1`

	attachCouponSQL = `INSERT INTO cart_coupons (cart_id, coupon_id) VALUES ($1, $2)`

	detachCouponSQL = `DELETE FROM cart_coupons WHERE id = $1`

	clearCartCouponsSQL = `DELETE FROM cart_coupons WHERE cart_id = $1`

	setCartStatusSQL = `UPDATE carts SET status = $2, updated_at = now() WHERE id = $1`
)

const prefixedCouponColumns = `c.id, c.code, c.type, c.value, c.active, c.starts_at, c.ends_at, c.min_subtotal,
	c.max_uses, c.uses, c.max_uses_per_cart, c.stackable, c.created_at, c.updated_at`

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// FindActiveByToken loads the active cart with the given token, including
// its items and attached coupons. Returns cart.ErrNotFound when no active
// cart holds the token.
func (r *CartRepository) FindActiveByToken(ctx context.Context, token string) (*cart.Cart, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, cart.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getActiveCartByTokenSQL, token)
	if err != nil {
		return nil, fmt.Errorf("finding cart %q: %w", token, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("finding cart %q: %w", token, err)
	}

	if err := r.loadContents(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a fresh active cart with a generated token.
func (r *CartRepository) Create(ctx context.Context) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, insertCartSQL, uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	return &c, nil
}

func (r *CartRepository) loadContents(ctx context.Context, c *cart.Cart) error {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return fmt.Errorf("loading cart items: %w", err)
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return fmt.Errorf("loading cart items: %w", err)
	}

	rows, err = r.pool.Query(ctx, listCartCouponsSQL, c.ID)
	if err != nil {
		return fmt.Errorf("loading cart coupons: %w", err)
	}
	c.Coupons, err = pgx.CollectRows(rows, scanAppliedCoupon)
	if err != nil {
		return fmt.Errorf("loading cart coupons: %w", err)
	}
	return nil
}

// AddItem inserts a cart line and fills its generated fields.
func (r *CartRepository) AddItem(ctx context.Context, cartID int64, item *cart.Item) error {
	err := r.pool.QueryRow(ctx, insertCartItemSQL,
		cartID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity,
		string(item.Discount.Type), item.Discount.Value,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("adding cart item: %w", err)
	}
	return nil
}

// UpdateItemQuantity sets a cart line's quantity.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, itemID int64, qty int) error {
	return r.exec(ctx, updateItemQuantitySQL, itemID, qty)
}

// UpdateItemDiscount sets a cart line's discount.
func (r *CartRepository) UpdateItemDiscount(ctx context.Context, itemID int64, spec discount.Spec) error {
	return r.exec(ctx, updateItemDiscountSQL, itemID, string(spec.Type), spec.Value)
}

// RemoveItem deletes a cart line.
func (r *CartRepository) RemoveItem(ctx context.Context, itemID int64) error {
	return r.exec(ctx, deleteCartItemSQL, itemID)
}

// ClearItems deletes all of a cart's lines.
func (r *CartRepository) ClearItems(ctx context.Context, cartID int64) error {
	return r.exec(ctx, clearCartItemsSQL, cartID)
}

// SetCartDiscount sets the cart-level discount.
func (r *CartRepository) SetCartDiscount(ctx context.Context, cartID int64, spec discount.Spec) error {
	return r.exec(ctx, setCartDiscountSQL, cartID, string(spec.Type), spec.Value)
}

// AttachCoupon links a coupon to the cart. The unique index on
// (cart_id, coupon_id) backstops the service-level duplicate check against
// concurrent attaches; violations map to cart.ErrCouponAlreadyApplied.
func (r *CartRepository) AttachCoupon(ctx context.Context, cartID, couponID int64) error {
	if _, err := r.pool.Exec(ctx, attachCouponSQL, cartID, couponID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return cart.ErrCouponAlreadyApplied
		}
		return fmt.Errorf("attaching coupon: %w", err)
	}
	return nil
}

// DetachCoupon removes a single coupon link.
func (r *CartRepository) DetachCoupon(ctx context.Context, linkID int64) error {
	return r.exec(ctx, detachCouponSQL, linkID)
}

// ClearCoupons removes all of a cart's coupon links.
func (r *CartRepository) ClearCoupons(ctx context.Context, cartID int64) error {
	return r.exec(ctx, clearCartCouponsSQL, cartID)
}

// SetStatus moves the cart to a new lifecycle status.
func (r *CartRepository) SetStatus(ctx context.Context, cartID int64, status cart.Status) error {
	return r.exec(ctx, setCartStatusSQL, cartID, string(status))
}

func (r *CartRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("updating cart state: %w", err)
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c      cart.Cart
		status string
		dType  string
	)
	err := row.Scan(&c.ID, &c.Token, &status, &dType, &c.Discount.Value, &c.CreatedAt, &c.UpdatedAt)
	c.Status = cart.Status(status)
	c.Discount.Type = discount.Type(dType)
	return c, err
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it    cart.Item
		dType string
	)
	err := row.Scan(
		&it.ID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity,
		&dType, &it.Discount.Value, &it.CreatedAt, &it.UpdatedAt,
	)
	it.Discount.Type = discount.Type(dType)
	return it, err
}

func scanAppliedCoupon(row pgx.CollectableRow) (cart.AppliedCoupon, error) {
	var (
		link cart.AppliedCoupon
		c    coupon.Coupon
		typ  string
	)
	err := row.Scan(
		&link.LinkID, &link.AttachedAt,
		&c.ID, &c.Code, &typ, &c.Value, &c.Active, &c.StartsAt, &c.EndsAt, &c.MinSubtotal,
		&c.MaxUses, &c.Uses, &c.MaxUsesPerCart, &c.Stackable, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Type = coupon.Type(typ)
	link.Coupon = &c
	return link, err
}
