package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/storage/memory"
	"github.com/keteik/simple-inventory-management-system/internal/storage/postgres"
	"github.com/keteik/simple-inventory-management-system/internal/transaction"
	"github.com/keteik/simple-inventory-management-system/pkg/health"
)

// store bundles the repositories of one storage driver. All of them take part
// in units of work opened by scope.
type store struct {
	scope     transaction.Scope
	customers customer.Repository
	products  product.Repository
	orders    order.Repository
	ledger    inventory.Ledger
	pinger    health.Pinger
	close     func()
}

func openStore(ctx context.Context, lg *zap.Logger, cfg *Config, tp trace.TracerProvider) (*store, error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, data is lost on restart")
		s := memory.New()
		return &store{
			scope:     s,
			customers: s.Customers(),
			products:  s.Products(),
			orders:    s.Orders(),
			ledger:    s.Ledger(),
			pinger:    s,
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	db := postgres.New(pool, tp)
	return &store{
		scope:     db,
		customers: db.Customers(),
		products:  db.Products(),
		orders:    db.Orders(),
		ledger:    db.Ledger(),
		pinger:    db,
		close:     pool.Close,
	}, nil
}
