package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	lockProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (code, status, customer_name, phone, email, address,
			subtotal, items_discount_total, cart_discount_amount, coupon_total, total, cart_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, name, unit_price,
			discount_type, discount_value, unit_discount, unit_final_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	decrementStockSQL = `UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2`

	closeCartSQL = `UPDATE carts SET status = 'checked_out', updated_at = now() WHERE id = $1`
)

var _ checkout.Store = (*CheckoutStore)(nil)

// CheckoutStore runs checkout transactions on PostgreSQL. Row locks taken
// by LockProducts are held until the transaction commits or rolls back.
type CheckoutStore struct {
	pool *pgxpool.Pool
}

// NewCheckoutStore returns a CheckoutStore that uses the given pool.
func NewCheckoutStore(pool *pgxpool.Pool) *CheckoutStore {
	return &CheckoutStore{pool: pool}
}

// WithinTx runs fn inside a transaction. Any error from fn rolls the
// transaction back.
func (s *CheckoutStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &checkoutTx{tx: tx})
	})
}

type checkoutTx struct {
	tx pgx.Tx
}

var _ checkout.Tx = (*checkoutTx)(nil)

// LockProducts acquires FOR UPDATE locks on the given products, in
// ascending id order so concurrent checkouts cannot deadlock.
func (t *checkoutTx) LockProducts(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, lockProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// CreateOrder inserts the order and its item snapshots.
func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.Code, string(o.Status), o.Customer.Name, o.Customer.Phone, o.Customer.Email, o.Customer.Address,
		o.Money.Subtotal, o.Money.ItemsDiscountTotal, o.Money.CartDiscountAmount,
		o.Money.CouponTotal, o.Money.Total, o.CartToken, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		err := t.tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, it.ProductID, it.Name, it.UnitPrice,
			string(it.Discount.Type), it.Discount.Value,
			it.UnitDiscount, it.UnitFinalPrice, it.Quantity, it.LineTotal,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
	}
	return nil
}

// DecrementStock subtracts qty from the product's stock. The guard in the
// WHERE clause refuses to take stock below zero even if validation raced.
func (t *checkoutTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: stock below requested quantity %d", productID, qty)
	}
	return nil
}

// CloseCart marks the cart checked_out and detaches its items and coupons.
func (t *checkoutTx) CloseCart(ctx context.Context, cartID int64) error {
	if _, err := t.tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart items: %w", err)
	}
	if _, err := t.tx.Exec(ctx, clearCartCouponsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart coupons: %w", err)
	}
	if _, err := t.tx.Exec(ctx, closeCartSQL, cartID); err != nil {
		return fmt.Errorf("closing cart: %w", err)
	}
	return nil
}
