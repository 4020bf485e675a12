package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item as the pricing core sees it. The catalog itself
// is managed elsewhere; the core reads these fields and, during checkout,
// decrements Quantity for stock-tracked products.
type Product struct {
	ID           int64
	Name         string
	Price        decimal.Decimal
	Quantity     int
	MinimumOrder int
	StockTracked bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MinOrder returns the effective minimum order quantity, never below 1.
func (p *Product) MinOrder() int {
	if p.MinimumOrder < 1 {
		return 1
	}
	return p.MinimumOrder
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
}
