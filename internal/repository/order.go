package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	orderColumns = `id, code, status, customer_name, phone, email, address,
		subtotal, items_discount_total, cart_discount_amount, coupon_total, total,
		cart_token, created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByPhoneSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE phone = $1 ORDER BY created_at DESC LIMIT $2`

	listOrderItemsSQL = `SELECT id, product_id, name, unit_price, discount_type, discount_value,
			unit_discount, unit_final_price, quantity, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Orders
// are written exclusively by the checkout store; this repository only reads.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns a single order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns a filtered, paged order listing newest first along with the
// total row count for the filter.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int, error) {
	filter = filter.Normalize()

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.Phone != "" {
		conds = append(conds, "phone = "+arg(filter.Phone))
	}
	if filter.Email != "" {
		conds = append(conds, "email = "+arg(filter.Email))
	}
	if filter.Code != "" {
		conds = append(conds, "code = "+arg(filter.Code))
	}
	if filter.Start != nil {
		conds = append(conds, "created_at >= "+arg(*filter.Start))
	}
	if filter.End != nil {
		conds = append(conds, "created_at < "+arg(*filter.End))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	query := "SELECT " + orderColumns + " FROM orders" + where +
		" ORDER BY created_at DESC LIMIT " + arg(filter.PerPage) + " OFFSET " + arg(filter.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}

	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// ListByPhone returns the newest orders for a phone number.
func (r *OrderRepository) ListByPhone(ctx context.Context, phone string, limit int) ([]order.Order, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, listOrdersByPhoneSQL, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders by phone: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders by phone: %w", err)
	}
	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	return items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.Code, &status, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Email, &o.Customer.Address,
		&o.Money.Subtotal, &o.Money.ItemsDiscountTotal, &o.Money.CartDiscountAmount,
		&o.Money.CouponTotal, &o.Money.Total,
		&o.CartToken, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it    order.Item
		dType string
	)
	err := row.Scan(
		&it.ID, &it.ProductID, &it.Name, &it.UnitPrice, &dType, &it.Discount.Value,
		&it.UnitDiscount, &it.UnitFinalPrice, &it.Quantity, &it.LineTotal,
	)
	it.Discount.Type = discount.Type(dType)
	return it, err
}
