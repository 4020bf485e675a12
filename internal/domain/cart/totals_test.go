package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func eq(t *testing.T, want string, got decimal.Decimal, name string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: expected %s, got %s", name, want, got)
}

func pctCoupon(code, value string) AppliedCoupon {
	return AppliedCoupon{Coupon: &coupon.Coupon{Code: code, Type: coupon.TypePercent, Value: d(value), Active: true, Stackable: true}}
}

func fixedCoupon(code, value string) AppliedCoupon {
	return AppliedCoupon{Coupon: &coupon.Coupon{Code: code, Type: coupon.TypeFixed, Value: d(value), Active: true, Stackable: true}}
}

// Worked example: price 10.00, fixed item discount 2.00, qty 3, one 10%
// coupon. unit_final 8.00, line_total 24.00, coupon 2.40, grand 21.60.
func TestComputeTotalsWorkedExample(t *testing.T) {
	items := []Item{{
		ID:        1,
		ProductID: 7,
		UnitPrice: d("10.00"),
		Quantity:  3,
		Discount:  discount.Spec{Type: discount.TypeFixed, Value: d("2.00")},
	}}

	got := ComputeTotals(items, discount.None(), []AppliedCoupon{pctCoupon("TEN", "10")})

	require.Len(t, got.Items, 1)
	eq(t, "2.00", got.Items[0].UnitDiscount, "unit discount")
	eq(t, "8.00", got.Items[0].UnitFinal, "unit final")
	eq(t, "30.00", got.Items[0].LineSubtotal, "line subtotal")
	eq(t, "24.00", got.Items[0].LineTotal, "line total")

	eq(t, "30.00", got.SubtotalBefore, "subtotal before")
	eq(t, "6.00", got.ItemsDiscountTotal, "items discount total")
	eq(t, "24.00", got.SubtotalAfterItems, "subtotal after items")
	eq(t, "0", got.CartDiscountAmount, "cart discount")
	eq(t, "24.00", got.BaseAfterCart, "base after cart")
	eq(t, "2.40", got.CouponTotal, "coupon total")
	eq(t, "21.60", got.GrandTotal, "grand total")
}

// Worked example: subtotal 100.00, fixed 20.00 coupon then 10% coupon.
// The percent coupon applies to the 80.00 remainder.
func TestComputeTotalsStackedCoupons(t *testing.T) {
	items := []Item{{ID: 1, ProductID: 1, UnitPrice: d("100.00"), Quantity: 1, Discount: discount.None()}}

	got := ComputeTotals(items, discount.None(), []AppliedCoupon{
		fixedCoupon("A", "20"),
		pctCoupon("B", "10"),
	})

	require.Len(t, got.Coupons, 2)
	eq(t, "20", got.Coupons[0].Amount, "coupon A")
	eq(t, "8", got.Coupons[1].Amount, "coupon B")
	eq(t, "28", got.CouponTotal, "coupon total")
	eq(t, "72.00", got.GrandTotal, "grand total")
}

func TestComputeTotalsCartDiscount(t *testing.T) {
	items := []Item{
		{ID: 1, ProductID: 1, UnitPrice: d("25.00"), Quantity: 2, Discount: discount.None()},
		{ID: 2, ProductID: 2, UnitPrice: d("50.00"), Quantity: 1, Discount: discount.Spec{Type: discount.TypePercent, Value: d("10")}},
	}

	// subtotal_before 100.00; item 2 unit final 45.00 -> after items 95.00;
	// cart discount 20% of 95.00 = 19.00 -> base 76.00
	got := ComputeTotals(items, discount.Spec{Type: discount.TypePercent, Value: d("20")}, nil)

	eq(t, "100.00", got.SubtotalBefore, "subtotal before")
	eq(t, "5.00", got.ItemsDiscountTotal, "items discount")
	eq(t, "95.00", got.SubtotalAfterItems, "after items")
	eq(t, "19.00", got.CartDiscountAmount, "cart discount")
	eq(t, "76.00", got.BaseAfterCart, "base after cart")
	eq(t, "76.00", got.GrandTotal, "grand total")
}

func TestComputeTotalsIdempotent(t *testing.T) {
	items := []Item{
		{ID: 1, ProductID: 1, UnitPrice: d("9.99"), Quantity: 3, Discount: discount.Spec{Type: discount.TypePercent, Value: d("33.33")}},
		{ID: 2, ProductID: 2, UnitPrice: d("0.05"), Quantity: 7, Discount: discount.None()},
	}
	cartDisc := discount.Spec{Type: discount.TypeFixed, Value: d("1.11")}
	coupons := []AppliedCoupon{pctCoupon("P", "12.5"), fixedCoupon("F", "3.33")}

	first := ComputeTotals(items, cartDisc, coupons)
	second := ComputeTotals(items, cartDisc, coupons)

	assert.True(t, first.GrandTotal.Equal(second.GrandTotal))
	assert.True(t, first.SubtotalBefore.Equal(second.SubtotalBefore))
	assert.True(t, first.CouponTotal.Equal(second.CouponTotal))
	require.Equal(t, len(first.Coupons), len(second.Coupons))
	for i := range first.Coupons {
		assert.True(t, first.Coupons[i].Amount.Equal(second.Coupons[i].Amount))
	}
}

func TestComputeTotalsGrandTotalFloored(t *testing.T) {
	items := []Item{{ID: 1, ProductID: 1, UnitPrice: d("10.00"), Quantity: 1, Discount: discount.None()}}

	got := ComputeTotals(items, discount.None(), []AppliedCoupon{
		fixedCoupon("BIG", "50"),
		fixedCoupon("BIGGER", "100"),
	})

	eq(t, "10.00", got.CouponTotal, "coupon total capped at base")
	eq(t, "0", got.GrandTotal, "grand total")
	assert.False(t, got.GrandTotal.IsNegative())
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	got := ComputeTotals(nil, discount.Spec{Type: discount.TypePercent, Value: d("20")}, []AppliedCoupon{pctCoupon("X", "10")})

	eq(t, "0", got.SubtotalBefore, "subtotal before")
	eq(t, "0", got.CouponTotal, "coupon total")
	eq(t, "0", got.GrandTotal, "grand total")
}
