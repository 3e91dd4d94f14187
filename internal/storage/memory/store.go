// Package memory provides in-process implementations of the repositories,
// the inventory ledger and the unit of work. A unit of work holds the store
// lock for its whole duration and restores a snapshot when it fails.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/transaction"
)

var _ transaction.Scope = (*Store)(nil)

type txKey struct{}

// Store keeps all state in maps guarded by a single mutex.
type Store struct {
	mu sync.Mutex

	customers map[string]customer.Customer
	emails    map[string]string
	products  map[string]product.Product
	catalog   []string // product ids in insertion order
	orders    map[string]order.Order
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		customers: make(map[string]customer.Customer),
		emails:    make(map[string]string),
		products:  make(map[string]product.Product),
		orders:    make(map[string]order.Order),
	}
}

type snapshot struct {
	customers map[string]customer.Customer
	emails    map[string]string
	products  map[string]product.Product
	catalog   []string
	orders    map[string]order.Order
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		customers: maps.Clone(s.customers),
		emails:    maps.Clone(s.emails),
		products:  maps.Clone(s.products),
		catalog:   slices.Clone(s.catalog),
		orders:    maps.Clone(s.orders),
	}
}

func (s *Store) restore(snap snapshot) {
	s.customers = snap.customers
	s.emails = snap.emails
	s.products = snap.products
	s.catalog = snap.catalog
	s.orders = snap.orders
}

func (s *Store) inTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*Store)
	return ok && tx == s
}

// lock acquires the store lock unless ctx already runs inside a unit of work
// of this store.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Execute runs fn as a unit of work. A context cancelled before fn starts
// aborts without effects.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return transaction.ErrNested
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", transaction.ErrAborted, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.restore(snap)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// Customers returns the customer repository.
func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{s: s} }

// Products returns the product repository.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Ledger returns the inventory ledger.
func (s *Store) Ledger() *Ledger { return &Ledger{s: s} }

// Ping always succeeds; it lets the store serve as a readiness dependency.
func (s *Store) Ping(context.Context) error { return nil }
