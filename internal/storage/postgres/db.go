package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keteik/simple-inventory-management-system/internal/transaction"
)

var _ transaction.Scope = (*DB)(nil)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// DB is the PostgreSQL unit of work. Repositories obtained from it join the
// transaction carried by the context, if any.
type DB struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// New returns a DB on pool. A nil tp disables tracing.
func New(pool *pgxpool.Pool, tp trace.TracerProvider) *DB {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &DB{
		pool:   pool,
		tracer: tp.Tracer("github.com/keteik/simple-inventory-management-system/internal/storage/postgres"),
	}
}

func (db *DB) q(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return db.pool
}

// Execute runs fn inside a read committed transaction. Serialization
// failures, deadlocks and timeouts are reported as transaction.ErrAborted.
func (db *DB) Execute(ctx context.Context, fn func(ctx context.Context) error) (rerr error) {
	if _, ok := txFromContext(ctx); ok {
		return transaction.ErrNested
	}

	ctx, span := db.tracer.Start(ctx, "postgres.UnitOfWork")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// savepoint runs fn in a nested transaction of the one carried by ctx, or in
// a fresh transaction when ctx carries none.
func (db *DB) savepoint(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.q(ctx).Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Customers returns the customer repository.
func (db *DB) Customers() *CustomerRepository { return &CustomerRepository{db: db} }

// Products returns the product repository.
func (db *DB) Products() *ProductRepository { return &ProductRepository{db: db} }

// Orders returns the order repository.
func (db *DB) Orders() *OrderRepository { return &OrderRepository{db: db} }

// Ledger returns the inventory ledger.
func (db *DB) Ledger() *Ledger { return &Ledger{db: db} }

// SQLSTATE codes mapped to domain errors. The first four abort a unit of work
// without leaving effects.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeUniqueViolation      = "23505"
	codeOutOfRange           = "22003"
)

func classify(err error) error {
	if err == nil || errors.Is(err, transaction.ErrAborted) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%w: %w", transaction.ErrAborted, err)
		}
		return err
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", transaction.ErrAborted, err)
	}
	return err
}

func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeOutOfRange
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
