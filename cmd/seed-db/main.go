// Command seed-db loads demo customers and products into PostgreSQL. Seed
// files are JSON arrays, optionally gzip-compressed (.json.gz).
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		customersFile string
		productsFile  string
		workers       int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&customersFile, "customers-file", "db/seed/customers.json", "path to customers JSON file (.json or .json.gz)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.json or .json.gz)")
	flag.IntVar(&workers, "workers", 4, "concurrent inserts")
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

	if err := run(ctx, databaseURL, customersFile, productsFile, max(workers, 1)); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, customersFile, productsFile string, workers int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	db := postgres.New(pool, nil)

	if err := seedCustomers(ctx, customer.NewService(db.Customers()), customersFile, workers); err != nil {
		return errors.Wrap(err, "seed customers")
	}
	if err := seedProducts(ctx, product.NewService(db.Products(), db.Ledger()), productsFile, workers); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

// readSeed returns the contents of path, decompressing .gz files.
func readSeed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return io.ReadAll(r)
}

func seedCustomers(ctx context.Context, svc *customer.Service, path string, workers int) error {
	slog.Info("reading customers file", slog.String("path", path))

	data, err := readSeed(path)
	if err != nil {
		return errors.Wrap(err, "read customers file")
	}
	reqs, err := decodeCustomers(data)
	if err != nil {
		return errors.Wrap(err, "parse customers JSON")
	}

	slog.Info("registering customers", slog.Int("count", len(reqs)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, req := range reqs {
		g.Go(func() error {
			c, err := svc.Register(ctx, req)
			switch {
			case errors.Is(err, customer.ErrEmailTaken):
				slog.Info("customer exists", slog.String("email", req.Email))
				return nil
			case err != nil:
				return errors.Wrapf(err, "register %s", req.Email)
			}
			slog.Info("registered customer", slog.String("id", c.ID), slog.String("email", c.Email))
			return nil
		})
	}
	return g.Wait()
}

func seedProducts(ctx context.Context, svc *product.Service, path string, workers int) error {
	page, err := svc.List(ctx, 1, 1)
	if err != nil {
		return errors.Wrap(err, "count products")
	}
	if page.Total > 0 {
		slog.Info("catalog not empty, skipping products", slog.Int("total", page.Total))
		return nil
	}

	slog.Info("reading products file", slog.String("path", path))

	data, err := readSeed(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	reqs, err := decodeProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("creating products", slog.Int("count", len(reqs)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, req := range reqs {
		g.Go(func() error {
			p, err := svc.Create(ctx, req)
			if err != nil {
				return errors.Wrapf(err, "create %s", req.Name)
			}
			slog.Info("created product", slog.String("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}
