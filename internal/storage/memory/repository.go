package memory

import (
	"context"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

var (
	_ customer.Repository = (*CustomerRepository)(nil)
	_ product.Repository  = (*ProductRepository)(nil)
	_ order.Repository    = (*OrderRepository)(nil)
	_ inventory.Ledger    = (*Ledger)(nil)
)

// CustomerRepository implements customer.Repository on a Store.
type CustomerRepository struct {
	s *Store
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.emails[c.Email]; ok {
		return customer.ErrEmailTaken
	}
	r.s.customers[c.ID] = *c
	r.s.emails[c.Email] = c.ID
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	defer r.s.lock(ctx)()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

// ProductRepository implements product.Repository on a Store.
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.products[p.ID]; !ok {
		r.s.catalog = append(r.s.catalog, p.ID)
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByIDs returns the products that exist among ids; missing ids are
// skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	defer r.s.lock(ctx)()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]product.Product, int, error) {
	defer r.s.lock(ctx)()

	total := len(r.s.catalog)
	if offset >= total {
		return []product.Product{}, total, nil
	}
	end := min(offset+limit, total)
	out := make([]product.Product, 0, end-offset)
	for _, id := range r.s.catalog[offset:end] {
		out = append(out, r.s.products[id])
	}
	return out, total, nil
}

func (r *ProductRepository) AddStock(ctx context.Context, id string, amount int) (*product.Product, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	if amount > inventory.MaxQuantity-p.Stock {
		return nil, product.ErrStockOverflow
	}
	p.Stock += amount
	r.s.products[id] = p
	return &p, nil
}

// OrderRepository implements order.Repository on a Store.
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	defer r.s.lock(ctx)()

	cp := *o
	cp.Items = append([]order.LineItem(nil), o.Items...)
	r.s.orders[o.ID] = cp
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	defer r.s.lock(ctx)()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = append([]order.LineItem(nil), o.Items...)
	return &o, nil
}

// Ledger implements inventory.Ledger on a Store. Every reservation is
// checked before any stock changes, under the store lock.
type Ledger struct {
	s *Store
}

func (l *Ledger) Reserve(ctx context.Context, items []inventory.Reservation) error {
	merged, err := inventory.Normalize(items)
	if err != nil {
		return err
	}

	defer l.s.lock(ctx)()

	for _, it := range merged {
		p, ok := l.s.products[it.ProductID]
		if !ok || p.Stock < it.Quantity {
			return &inventory.InsufficientStockError{ProductID: it.ProductID}
		}
	}
	for _, it := range merged {
		p := l.s.products[it.ProductID]
		p.Stock -= it.Quantity
		l.s.products[it.ProductID] = p
	}
	return nil
}
