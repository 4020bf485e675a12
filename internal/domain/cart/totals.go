package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/money"
)

// ItemTotals is the priced view of one cart line.
type ItemTotals struct {
	ItemID       int64
	ProductID    int64
	UnitPrice    decimal.Decimal
	UnitDiscount decimal.Decimal
	UnitFinal    decimal.Decimal
	Quantity     int
	LineSubtotal decimal.Decimal
	LineDiscount decimal.Decimal
	LineTotal    decimal.Decimal
}

// Totals is the full money breakdown of a cart.
type Totals struct {
	SubtotalBefore     decimal.Decimal
	ItemsDiscountTotal decimal.Decimal
	SubtotalAfterItems decimal.Decimal
	CartDiscountAmount decimal.Decimal
	BaseAfterCart      decimal.Decimal
	CouponTotal        decimal.Decimal
	GrandTotal         decimal.Decimal

	Items   []ItemTotals
	Coupons []coupon.Applied
}

// ComputeTotals runs the total computation pipeline. It is a pure function
// of its inputs and safe to rerun any number of times:
//
//  1. per item: unit discount, unit final price, line total
//  2. cart-level discount against the post-item-discount subtotal
//  3. coupons sequentially against the remaining base (oldest link first)
//  4. grand total floored at zero
//
// Every monetary subtotal is rounded where it is produced, so intermediate
// and final figures agree with what checkout and order snapshots persist.
func ComputeTotals(items []Item, cartDiscount discount.Spec, coupons []AppliedCoupon) Totals {
	t := Totals{
		SubtotalBefore:     decimal.Zero,
		ItemsDiscountTotal: decimal.Zero,
		Items:              make([]ItemTotals, 0, len(items)),
	}

	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))

		unitDiscount := it.Discount.Amount(it.UnitPrice)
		unitFinal := money.Round(it.UnitPrice.Sub(unitDiscount))

		lineSubtotal := money.Round(it.UnitPrice.Mul(qty))
		lineTotal := money.Round(unitFinal.Mul(qty))
		lineDiscount := money.Round(lineSubtotal.Sub(lineTotal))

		t.Items = append(t.Items, ItemTotals{
			ItemID:       it.ID,
			ProductID:    it.ProductID,
			UnitPrice:    money.Round(it.UnitPrice),
			UnitDiscount: unitDiscount,
			UnitFinal:    unitFinal,
			Quantity:     it.Quantity,
			LineSubtotal: lineSubtotal,
			LineDiscount: lineDiscount,
			LineTotal:    lineTotal,
		})

		t.SubtotalBefore = t.SubtotalBefore.Add(lineSubtotal)
		t.ItemsDiscountTotal = t.ItemsDiscountTotal.Add(lineDiscount)
	}

	t.SubtotalBefore = money.Round(t.SubtotalBefore)
	t.ItemsDiscountTotal = money.Round(t.ItemsDiscountTotal)
	t.SubtotalAfterItems = money.Round(t.SubtotalBefore.Sub(t.ItemsDiscountTotal))

	t.CartDiscountAmount = cartDiscount.Amount(t.SubtotalAfterItems)
	t.BaseAfterCart = money.Round(t.SubtotalAfterItems.Sub(t.CartDiscountAmount))

	stacked := make([]*coupon.Coupon, len(coupons))
	for i, link := range coupons {
		stacked[i] = link.Coupon
	}
	t.CouponTotal, t.Coupons = coupon.ApplyStacked(stacked, t.BaseAfterCart)

	t.GrandTotal = money.Round(money.FloorAtZero(t.BaseAfterCart.Sub(t.CouponTotal)))

	return t
}
