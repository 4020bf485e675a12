package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Applied is one line of a stacking breakdown.
type Applied struct {
	Code   string
	Amount decimal.Decimal
}

// ApplyStacked computes the combined discount of the given coupons against a
// base amount using the sequential-remainder policy: coupons apply in slice
// order (attachment order, oldest first), and each coupon's discount is
// evaluated against the base remaining after the previous coupons, never
// against the original base. The running remainder cannot go negative.
//
// Eligibility is not checked here; callers gate attachment and re-validate
// at checkout.
func ApplyStacked(coupons []*Coupon, base decimal.Decimal) (decimal.Decimal, []Applied) {
	total := decimal.Zero
	breakdown := make([]Applied, 0, len(coupons))

	remaining := money.FloorAtZero(base)
	for _, c := range coupons {
		amt := c.DiscountAmount(remaining)
		remaining = money.FloorAtZero(remaining.Sub(amt))
		total = total.Add(amt)
		breakdown = append(breakdown, Applied{Code: c.Code, Amount: amt})
	}

	return money.Round(total), breakdown
}
