package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	couponColumns = `id, code, type, value, active, starts_at, ends_at, min_subtotal,
		max_uses, uses, max_uses_per_cart, stackable, created_at, updated_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE active = TRUE ORDER BY created_at DESC`

	listCouponCodesSQL = `SELECT code FROM coupons`

	insertCouponSQL = `INSERT INTO coupons (code, type, value, active, starts_at, ends_at, min_subtotal,
			max_uses, max_uses_per_cart, stackable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, uses, created_at, updated_at`
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL. A
// bloom filter over known codes screens out lookups for codes that cannot
// exist; false positives just fall through to the database.
type CouponRepository struct {
	pool *pgxpool.Pool

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	warmed bool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{
		pool:   pool,
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}
}

// Warm populates the code prescreen filter from the database. Until Warm
// succeeds, lookups skip the filter and always hit the database.
func (r *CouponRepository) Warm(ctx context.Context) error {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return fmt.Errorf("loading coupon codes: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("loading coupon codes: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range codes {
		r.filter.AddString(strings.ToUpper(code))
	}
	r.warmed = true
	return nil
}

func (r *CouponRepository) mightExist(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.warmed {
		return true
	}
	return r.filter.TestString(strings.ToUpper(code))
}

// FindByCode looks up a coupon by its code (case-insensitive). Returns
// coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	if !r.mightExist(code) {
		return nil, coupon.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Create persists a new coupon and fills in its generated fields. Returns
// coupon.ErrCodeTaken when the code is already in use.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, insertCouponSQL,
		c.Code, string(c.Type), c.Value, c.Active, c.StartsAt, c.EndsAt, c.MinSubtotal,
		c.MaxUses, c.MaxUsesPerCart, c.Stackable,
	).Scan(&c.ID, &c.Uses, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return coupon.ErrCodeTaken
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}

	r.mu.Lock()
	r.filter.AddString(strings.ToUpper(c.Code))
	r.mu.Unlock()
	return nil
}

// List returns coupons newest first, optionally only active ones.
func (r *CouponRepository) List(ctx context.Context, activeOnly bool) ([]coupon.Coupon, error) {
	query := listCouponsSQL
	if activeOnly {
		query = listActiveCouponsSQL
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c   coupon.Coupon
		typ string
	)
	err := row.Scan(
		&c.ID, &c.Code, &typ, &c.Value, &c.Active, &c.StartsAt, &c.EndsAt, &c.MinSubtotal,
		&c.MaxUses, &c.Uses, &c.MaxUsesPerCart, &c.Stackable, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Type = coupon.Type(typ)
	return c, err
}
