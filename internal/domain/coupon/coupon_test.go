package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intp(v int) *int { return &v }

func validCoupon() *Coupon {
	return &Coupon{
		ID:        1,
		Code:      "SUMMER10",
		Type:      TypePercent,
		Value:     d("10"),
		Active:    true,
		Stackable: true,
	}
}

func TestCheckEligibility(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		mutate func(*Coupon)
		state  CartState
		want   error
	}{
		{
			name:   "valid coupon passes",
			mutate: func(*Coupon) {},
			state:  CartState{Subtotal: d("100")},
			want:   nil,
		},
		{
			name:   "bad type fails closed",
			mutate: func(c *Coupon) { c.Type = Type("free_shipping") },
			state:  CartState{Subtotal: d("100")},
			want:   ErrMalformed,
		},
		{
			name:   "zero value fails closed",
			mutate: func(c *Coupon) { c.Value = decimal.Zero },
			state:  CartState{Subtotal: d("100")},
			want:   ErrMalformed,
		},
		{
			name:   "percent above 100 fails closed",
			mutate: func(c *Coupon) { c.Value = d("101") },
			state:  CartState{Subtotal: d("100")},
			want:   ErrMalformed,
		},
		{
			name:   "inactive",
			mutate: func(c *Coupon) { c.Active = false },
			state:  CartState{Subtotal: d("100")},
			want:   ErrInactive,
		},
		{
			name:   "not started",
			mutate: func(c *Coupon) { c.StartsAt = &future },
			state:  CartState{Subtotal: d("100")},
			want:   ErrNotStarted,
		},
		{
			name:   "expired",
			mutate: func(c *Coupon) { c.EndsAt = &past },
			state:  CartState{Subtotal: d("100")},
			want:   ErrExpired,
		},
		{
			name:   "open-ended window passes",
			mutate: func(c *Coupon) { c.StartsAt = &past },
			state:  CartState{Subtotal: d("100")},
			want:   nil,
		},
		{
			name:   "per-cart cap reached",
			mutate: func(*Coupon) {},
			state:  CartState{Subtotal: d("100"), TimesApplied: 1},
			want:   ErrPerCartLimit,
		},
		{
			name:   "per-cart cap of two allows second use",
			mutate: func(c *Coupon) { c.MaxUsesPerCart = 2 },
			state:  CartState{Subtotal: d("100"), TimesApplied: 1},
			want:   nil,
		},
		{
			name:   "globally exhausted",
			mutate: func(c *Coupon) { c.MaxUses = intp(5); c.Uses = 5 },
			state:  CartState{Subtotal: d("100")},
			want:   ErrExhausted,
		},
		{
			name:   "global cap with uses remaining passes",
			mutate: func(c *Coupon) { c.MaxUses = intp(5); c.Uses = 4 },
			state:  CartState{Subtotal: d("100")},
			want:   nil,
		},
		{
			name:   "non-stackable onto occupied cart",
			mutate: func(c *Coupon) { c.Stackable = false },
			state:  CartState{Subtotal: d("100"), OtherCoupons: 1},
			want:   ErrNotStackable,
		},
		{
			name:   "stackable onto cart holding non-stackable",
			mutate: func(*Coupon) {},
			state:  CartState{Subtotal: d("100"), OtherCoupons: 1, HasNonStackable: true},
			want:   ErrNotStackable,
		},
		{
			name:   "non-stackable alone passes",
			mutate: func(c *Coupon) { c.Stackable = false },
			state:  CartState{Subtotal: d("100")},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.mutate(c)
			err := CheckEligibility(c, now, tt.state)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckEligibilityMinSubtotal(t *testing.T) {
	now := time.Now()
	c := validCoupon()
	c.MinSubtotal = d("50")

	require.NoError(t, CheckEligibility(c, now, CartState{Subtotal: d("50")}))

	err := CheckEligibility(c, now, CartState{Subtotal: d("49.99")})
	var minErr *MinSubtotalError
	require.ErrorAs(t, err, &minErr)
	assert.True(t, d("50").Equal(minErr.Required))
	assert.Contains(t, err.Error(), "50.00")
}

// Checks short-circuit in order: a coupon that is both inactive and expired
// reports inactive, since the active check runs first.
func TestCheckEligibilityOrder(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	c := validCoupon()
	c.Active = false
	c.EndsAt = &past
	require.ErrorIs(t, CheckEligibility(c, now, CartState{}), ErrInactive)

	c = validCoupon()
	c.Type = Type("bogus")
	c.Active = false
	require.ErrorIs(t, CheckEligibility(c, now, CartState{}), ErrMalformed)
}

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		name string
		c    Coupon
		base decimal.Decimal
		want decimal.Decimal
	}{
		{"percent", Coupon{Type: TypePercent, Value: d("10")}, d("24.00"), d("2.40")},
		{"percent rounds", Coupon{Type: TypePercent, Value: d("15")}, d("29.97"), d("4.50")},
		{"fixed", Coupon{Type: TypeFixed, Value: d("20")}, d("100.00"), d("20")},
		{"fixed capped at base", Coupon{Type: TypeFixed, Value: d("20")}, d("12.50"), d("12.50")},
		{"zero base", Coupon{Type: TypePercent, Value: d("10")}, decimal.Zero, decimal.Zero},
		{"negative base", Coupon{Type: TypeFixed, Value: d("5")}, d("-1"), decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.DiscountAmount(tt.base)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestApplyStackedSequentialRemainder(t *testing.T) {
	// Fixed 20.00 then percent 10% on base 100.00: the percent coupon sees
	// the 80.00 remainder, not the original base.
	a := &Coupon{Code: "FLAT20", Type: TypeFixed, Value: d("20")}
	b := &Coupon{Code: "PCT10", Type: TypePercent, Value: d("10")}

	total, breakdown := ApplyStacked([]*Coupon{a, b}, d("100.00"))

	require.Len(t, breakdown, 2)
	assert.True(t, d("20").Equal(breakdown[0].Amount), "A: %s", breakdown[0].Amount)
	assert.True(t, d("8").Equal(breakdown[1].Amount), "B: %s", breakdown[1].Amount)
	assert.True(t, d("28").Equal(total), "total: %s", total)
}

func TestApplyStackedTwoPercent(t *testing.T) {
	// B - B*v1/100 - (B - B*v1/100)*v2/100, not B*(1 - v1/100 - v2/100).
	v1 := &Coupon{Code: "P20", Type: TypePercent, Value: d("20")}
	v2 := &Coupon{Code: "P50", Type: TypePercent, Value: d("50")}

	total, breakdown := ApplyStacked([]*Coupon{v1, v2}, d("100.00"))

	assert.True(t, d("20").Equal(breakdown[0].Amount))
	// 50% of the 80.00 remainder, not 50.00.
	assert.True(t, d("40").Equal(breakdown[1].Amount))
	assert.True(t, d("60").Equal(total))
}

func TestApplyStackedOrderMatters(t *testing.T) {
	fixed := &Coupon{Code: "F50", Type: TypeFixed, Value: d("50")}
	pct := &Coupon{Code: "P50", Type: TypePercent, Value: d("50")}

	totalFP, _ := ApplyStacked([]*Coupon{fixed, pct}, d("100.00"))
	totalPF, _ := ApplyStacked([]*Coupon{pct, fixed}, d("100.00"))

	// fixed-then-percent: 50 + 25 = 75; percent-then-fixed: 50 + 50 = 100.
	assert.True(t, d("75").Equal(totalFP), "got %s", totalFP)
	assert.True(t, d("100").Equal(totalPF), "got %s", totalPF)
}

func TestApplyStackedNeverNegative(t *testing.T) {
	coupons := []*Coupon{
		{Code: "F90", Type: TypeFixed, Value: d("90")},
		{Code: "F90B", Type: TypeFixed, Value: d("90")},
		{Code: "P100", Type: TypePercent, Value: d("100")},
	}

	total, breakdown := ApplyStacked(coupons, d("100.00"))

	assert.True(t, d("100").Equal(total), "total: %s", total)
	assert.True(t, d("90").Equal(breakdown[0].Amount))
	assert.True(t, d("10").Equal(breakdown[1].Amount))
	assert.True(t, decimal.Zero.Equal(breakdown[2].Amount))
}
