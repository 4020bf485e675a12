// Command product-import bulk-loads a product catalog from CSV files into
// the products table. Files ending in .gz are decompressed on the fly.
//
// Expected CSV columns: name, price, quantity, minimum_order, stock_tracked.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/repository"
)

type productRow struct {
	name         string
	price        decimal.Decimal
	quantity     int
	minimumOrder int
	stockTracked bool
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one CSV file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("product import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("product import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Parse all files concurrently, then load in one COPY.
	results := make([][]productRow, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			rows, err := parseFile(gctx, file)
			if err != nil {
				return errors.Wrapf(err, "parse %s", file)
			}
			slog.Info("parsed file", slog.String("file", file), slog.Int("rows", len(rows)))
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []productRow
	for _, rows := range results {
		all = append(all, rows...)
	}
	if len(all) == 0 {
		slog.Info("no rows to import")
		return nil
	}

	return copyProducts(ctx, pool, all)
}

func parseFile(ctx context.Context, path string) ([]productRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		reader = gz
	}

	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = 5

	var (
		rows   []productRow
		lineNo int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		lineNo++
		if lineNo == 1 && strings.EqualFold(record[0], "name") {
			continue
		}

		row, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string) (productRow, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return productRow{}, errors.Wrap(err, "price")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return productRow{}, errors.Wrap(err, "quantity")
	}
	minOrder, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return productRow{}, errors.Wrap(err, "minimum_order")
	}
	if minOrder < 1 {
		minOrder = 1
	}
	tracked, err := strconv.ParseBool(strings.TrimSpace(record[4]))
	if err != nil {
		return productRow{}, errors.Wrap(err, "stock_tracked")
	}

	return productRow{
		name:         strings.TrimSpace(record[0]),
		price:        price,
		quantity:     qty,
		minimumOrder: minOrder,
		stockTracked: tracked,
	}, nil
}

func copyProducts(ctx context.Context, pool *pgxpool.Pool, rows []productRow) error {
	count, err := pool.CopyFrom(ctx,
		pgx.Identifier{"products"},
		[]string{"name", "price", "quantity", "minimum_order", "stock_tracked"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.name, r.price, r.quantity, r.minimumOrder, r.stockTracked}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy products")
	}

	slog.Info("products imported", slog.Int64("count", count))
	return nil
}
