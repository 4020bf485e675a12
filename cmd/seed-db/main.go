package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/repository"
)

type productJSON struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	MinimumOrder int             `json:"minimum_order"`
	StockTracked *bool           `json:"stock_tracked"`
}

type couponJSON struct {
	Code           string          `json:"code"`
	Type           string          `json:"type"`
	Value          decimal.Decimal `json:"value"`
	MinSubtotal    decimal.Decimal `json:"min_subtotal"`
	MaxUsesPerCart int             `json:"max_uses_per_cart"`
	Stackable      bool            `json:"stackable"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, repository.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

const insertProductSQL = `INSERT INTO products (name, price, quantity, minimum_order, stock_tracked)
	VALUES ($1, $2, $3, $4, $5)`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(raw, &products); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	var existing int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM products").Scan(&existing); err != nil {
		return errors.Wrap(err, "count products")
	}
	if existing > 0 {
		slog.Info("products already seeded, skipping", slog.Int("count", existing))
		return nil
	}

	for _, p := range products {
		tracked := true
		if p.StockTracked != nil {
			tracked = *p.StockTracked
		}
		minOrder := p.MinimumOrder
		if minOrder < 1 {
			minOrder = 1
		}
		if _, err := pool.Exec(ctx, insertProductSQL, p.Name, p.Price, p.Quantity, minOrder, tracked); err != nil {
			return errors.Wrapf(err, "insert product %q", p.Name)
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

var seedCouponRules = []couponJSON{
	{Code: "SUMMER10", Type: "percent", Value: decimal.NewFromInt(10), Stackable: true},
	{Code: "WELCOME5", Type: "fixed", Value: decimal.NewFromInt(5), Stackable: true},
	{Code: "BIGSPEND", Type: "percent", Value: decimal.NewFromInt(20), MinSubtotal: decimal.NewFromInt(100)},
}

func seedCoupons(ctx context.Context, repo *repository.CouponRepository) error {
	inserted := 0
	for _, c := range seedCouponRules {
		err := repo.Create(ctx, &coupon.Coupon{
			Code:           c.Code,
			Type:           coupon.Type(c.Type),
			Value:          c.Value,
			Active:         true,
			MinSubtotal:    c.MinSubtotal,
			MaxUsesPerCart: c.MaxUsesPerCart,
			Stackable:      c.Stackable,
		})
		if err != nil {
			if errors.Is(err, coupon.ErrCodeTaken) {
				continue
			}
			return errors.Wrapf(err, "insert coupon %q", c.Code)
		}
		inserted++
	}

	slog.Info("coupons seeded", slog.Int("count", inserted))
	return nil
}
