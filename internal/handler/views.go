package handler

import (
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// Money fields are rendered as fixed two-decimal strings so clients never
// see float artifacts.

type discountView struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func viewDiscount(s discount.Spec) *discountView {
	if s.IsNone() {
		return nil
	}
	return &discountView{Type: string(s.Type), Value: s.Value.StringFixed(2)}
}

type cartItemView struct {
	ID           int64         `json:"id"`
	ProductID    int64         `json:"product_id"`
	Name         string        `json:"name"`
	UnitPrice    string        `json:"unit_price"`
	Quantity     int           `json:"quantity"`
	Discount     *discountView `json:"discount,omitempty"`
	UnitDiscount string        `json:"unit_discount"`
	UnitFinal    string        `json:"unit_final_price"`
	LineSubtotal string        `json:"line_subtotal"`
	LineTotal    string        `json:"line_total"`
}

type appliedCouponView struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

type cartMoneyView struct {
	Subtotal           string `json:"subtotal"`
	ItemsDiscountTotal string `json:"items_discount_total"`
	SubtotalAfterItems string `json:"subtotal_after_items"`
	CartDiscountAmount string `json:"cart_discount_amount"`
	CouponTotal        string `json:"coupon_total"`
	Total              string `json:"total"`
}

type cartView struct {
	ID        int64               `json:"id"`
	Token     string              `json:"token"`
	Status    string              `json:"status"`
	Items     []cartItemView      `json:"items"`
	Discount  *discountView       `json:"discount,omitempty"`
	Coupons   []appliedCouponView `json:"coupons"`
	Money     cartMoneyView       `json:"money"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func viewCart(c *cart.Cart, t cart.Totals) cartView {
	items := make([]cartItemView, len(t.Items))
	for i, it := range t.Items {
		items[i] = cartItemView{
			ID:           it.ItemID,
			ProductID:    it.ProductID,
			Name:         c.Items[i].ProductName,
			UnitPrice:    it.UnitPrice.StringFixed(2),
			Quantity:     it.Quantity,
			Discount:     viewDiscount(c.Items[i].Discount),
			UnitDiscount: it.UnitDiscount.StringFixed(2),
			UnitFinal:    it.UnitFinal.StringFixed(2),
			LineSubtotal: it.LineSubtotal.StringFixed(2),
			LineTotal:    it.LineTotal.StringFixed(2),
		}
	}

	coupons := make([]appliedCouponView, len(t.Coupons))
	for i, a := range t.Coupons {
		coupons[i] = appliedCouponView{Code: a.Code, Amount: a.Amount.StringFixed(2)}
	}

	return cartView{
		ID:       c.ID,
		Token:    c.Token,
		Status:   string(c.Status),
		Items:    items,
		Discount: viewDiscount(c.Discount),
		Coupons:  coupons,
		Money: cartMoneyView{
			Subtotal:           t.SubtotalBefore.StringFixed(2),
			ItemsDiscountTotal: t.ItemsDiscountTotal.StringFixed(2),
			SubtotalAfterItems: t.SubtotalAfterItems.StringFixed(2),
			CartDiscountAmount: t.CartDiscountAmount.StringFixed(2),
			CouponTotal:        t.CouponTotal.StringFixed(2),
			Total:              t.GrandTotal.StringFixed(2),
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type orderItemView struct {
	ProductID    int64         `json:"product_id"`
	Name         string        `json:"name"`
	UnitPrice    string        `json:"unit_price"`
	Discount     *discountView `json:"discount,omitempty"`
	UnitDiscount string        `json:"unit_discount"`
	UnitFinal    string        `json:"unit_final_price"`
	Quantity     int           `json:"quantity"`
	LineTotal    string        `json:"line_total"`
}

type orderCustomerView struct {
	Name    string         `json:"name"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email,omitempty"`
	Address map[string]any `json:"address,omitempty"`
}

type orderMoneyView struct {
	Subtotal           string `json:"subtotal"`
	ItemsDiscountTotal string `json:"items_discount_total"`
	CartDiscountAmount string `json:"cart_discount_amount"`
	CouponTotal        string `json:"coupon_total"`
	Total              string `json:"total"`
}

type orderView struct {
	ID        int64             `json:"id"`
	Code      string            `json:"code"`
	Status    string            `json:"status"`
	Customer  orderCustomerView `json:"customer"`
	Money     orderMoneyView    `json:"money"`
	Items     []orderItemView   `json:"items"`
	CartToken string            `json:"cart_token,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func viewOrder(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ProductID:    it.ProductID,
			Name:         it.Name,
			UnitPrice:    it.UnitPrice.StringFixed(2),
			Discount:     viewDiscount(it.Discount),
			UnitDiscount: it.UnitDiscount.StringFixed(2),
			UnitFinal:    it.UnitFinalPrice.StringFixed(2),
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal.StringFixed(2),
		}
	}
	return orderView{
		ID:     o.ID,
		Code:   o.Code,
		Status: string(o.Status),
		Customer: orderCustomerView{
			Name:    o.Customer.Name,
			Phone:   o.Customer.Phone,
			Email:   o.Customer.Email,
			Address: o.Customer.Address,
		},
		Money: orderMoneyView{
			Subtotal:           o.Money.Subtotal.StringFixed(2),
			ItemsDiscountTotal: o.Money.ItemsDiscountTotal.StringFixed(2),
			CartDiscountAmount: o.Money.CartDiscountAmount.StringFixed(2),
			CouponTotal:        o.Money.CouponTotal.StringFixed(2),
			Total:              o.Money.Total.StringFixed(2),
		},
		Items:     items,
		CartToken: o.CartToken,
		CreatedAt: o.CreatedAt,
	}
}

func viewOrders(orders []order.Order) []orderView {
	out := make([]orderView, len(orders))
	for i := range orders {
		out[i] = viewOrder(&orders[i])
	}
	return out
}

type productView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Quantity     int    `json:"quantity"`
	MinimumOrder int    `json:"minimum_order"`
	StockTracked bool   `json:"stock_tracked"`
	Active       bool   `json:"active"`
}

func viewProduct(p *product.Product) productView {
	return productView{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price.StringFixed(2),
		Quantity:     p.Quantity,
		MinimumOrder: p.MinOrder(),
		StockTracked: p.StockTracked,
		Active:       p.Active,
	}
}

type couponView struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	Type           string     `json:"type"`
	Value          string     `json:"value"`
	Active         bool       `json:"active"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	MinSubtotal    string     `json:"min_subtotal"`
	MaxUses        *int       `json:"max_uses,omitempty"`
	Uses           int        `json:"uses"`
	MaxUsesPerCart int        `json:"max_uses_per_cart"`
	Stackable      bool       `json:"stackable"`
}

func viewCoupon(c *coupon.Coupon) couponView {
	return couponView{
		ID:             c.ID,
		Code:           c.Code,
		Type:           string(c.Type),
		Value:          c.Value.StringFixed(2),
		Active:         c.Active,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		MinSubtotal:    c.MinSubtotal.StringFixed(2),
		MaxUses:        c.MaxUses,
		Uses:           c.Uses,
		MaxUsesPerCart: c.PerCartCap(),
		Stackable:      c.Stackable,
	}
}
