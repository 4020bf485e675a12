//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/checkout"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
	pool, err = repository.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func insertProduct(t *testing.T, name string, price string, qty int) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (name, price, quantity) VALUES ($1, $2, $3) RETURNING id`,
		name, dec(price), qty,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func productQuantity(t *testing.T, id int64) int {
	t.Helper()
	var qty int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT quantity FROM products WHERE id = $1`, id).Scan(&qty))
	return qty
}

func newCartWithItem(t *testing.T, svc *cart.Service, productID int64, qty int) *cart.Cart {
	t.Helper()
	c, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	c, err = svc.AddItem(context.Background(), c, productID, qty)
	require.NoError(t, err)
	return c
}

func testService(t *testing.T) (*cart.Service, *checkout.Orchestrator) {
	t.Helper()
	carts := repository.NewCartRepository(pool)
	products := repository.NewProductRepository(pool)
	coupons := repository.NewCouponRepository(pool)
	svc := cart.NewService(carts, products, coupons)
	orch := checkout.New(repository.NewCheckoutStore(pool), nil)
	return svc, orch
}

func TestCheckoutRoundTrip(t *testing.T) {
	svc, orch := testService(t)
	productID := insertProduct(t, "Round Trip Widget", "10.00", 50)

	c := newCartWithItem(t, svc, productID, 3)
	c, err := svc.SetCartDiscount(context.Background(), c,
		discount.Spec{Type: discount.TypePercent, Value: dec("10")})
	require.NoError(t, err)

	o, err := orch.Checkout(context.Background(), c, checkout.Request{
		Customer: order.Customer{Name: "Amina", Phone: "0781234567"},
	})
	require.NoError(t, err)
	require.NotZero(t, o.ID)
	assert.True(t, dec("27.00").Equal(o.Money.Total), "got %s", o.Money.Total)

	// Stock decremented, cart closed.
	assert.Equal(t, 47, productQuantity(t, productID))
	_, err = svc.AddItem(context.Background(), c, productID, 1)
	require.Error(t, err)

	// Snapshot is durable and readable.
	orders := repository.NewOrderRepository(pool)
	got, err := orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Code, got.Code)
	require.Len(t, got.Items, 1)
	assert.True(t, dec("30.00").Equal(got.Items[0].LineTotal))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	svc, orch := testService(t)
	productID := insertProduct(t, "Scarce Widget", "5.00", 10)

	const workers = 8
	carts := make([]*cart.Cart, workers)
	for i := range carts {
		carts[i] = newCartWithItem(t, svc, productID, 3)
	}

	var g errgroup.Group
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := orch.Checkout(context.Background(), carts[i], checkout.Request{
				Customer: order.Customer{Name: "Racer", Phone: "0780000000"},
			})
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}

	// 10 units / 3 per cart: at most 3 checkouts can win.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 1, productQuantity(t, productID))
}

func TestCouponLifecycle(t *testing.T) {
	svc, orch := testService(t)
	productID := insertProduct(t, "Coupon Widget", "20.00", 100)

	coupons := repository.NewCouponRepository(pool)
	err := coupons.Create(context.Background(), &coupon.Coupon{
		Code: "ITSAVE4", Type: coupon.TypeFixed, Value: dec("4.00"), Active: true, Stackable: true,
	})
	require.NoError(t, err)

	// Duplicate code is refused.
	err = coupons.Create(context.Background(), &coupon.Coupon{
		Code: "itsave4", Type: coupon.TypePercent, Value: dec("5"), Active: true,
	})
	require.ErrorIs(t, err, coupon.ErrCodeTaken)

	c := newCartWithItem(t, svc, productID, 1)
	c, err = svc.AttachCoupon(context.Background(), c, "itsave4")
	require.NoError(t, err)

	// A second link for the same cart and coupon trips the unique index even
	// when the attach bypasses the service's duplicate check.
	carts := repository.NewCartRepository(pool)
	err = carts.AttachCoupon(context.Background(), c.ID, c.Coupons[0].Coupon.ID)
	require.ErrorIs(t, err, cart.ErrCouponAlreadyApplied)

	o, err := orch.Checkout(context.Background(), c, checkout.Request{
		Customer: order.Customer{Name: "Amina", Phone: "0781234567"},
	})
	require.NoError(t, err)
	assert.True(t, dec("16.00").Equal(o.Money.Total), "got %s", o.Money.Total)
	assert.True(t, dec("4.00").Equal(o.Money.CouponTotal))
}
