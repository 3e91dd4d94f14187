package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
	"github.com/keteik/simple-inventory-management-system/internal/domain/pricing"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/transaction"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems       = errors.New("items required")
	ErrCustomerNotFound = errors.New("customer not found")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Item is a requested product and quantity.
type Item struct {
	ProductID string
	Quantity  int
}

// CommitRequest holds the input for committing an order.
type CommitRequest struct {
	CustomerID string
	Items      []Item
}

// Service commits and looks up orders.
type Service struct {
	tx        transaction.Scope
	customers customer.Repository
	products  product.Repository
	ledger    inventory.Ledger
	orders    Repository
	engine    *pricing.Engine
	now       func() time.Time
}

// NewService creates an order Service. All repositories and the ledger must
// take part in the unit of work opened by tx.
func NewService(
	tx transaction.Scope,
	customers customer.Repository,
	products product.Repository,
	ledger inventory.Ledger,
	orders Repository,
	engine *pricing.Engine,
) *Service {
	return &Service{
		tx:        tx,
		customers: customers,
		products:  products,
		ledger:    ledger,
		orders:    orders,
		engine:    engine,
		now:       time.Now,
	}
}

// Commit prices the requested items for the customer, reserves stock and
// persists the order, all in one unit of work. Either every effect is
// committed or none is.
//
// Errors: ErrEmptyItems, *pricing.InvalidQuantityError for a line outside
// [1, inventory.MaxQuantity], inventory.ErrInvalidQuantity when duplicate lines
// sum above it, ErrCustomerNotFound,
// *ProductNotFoundError, *inventory.InsufficientStockError, and
// transaction.ErrAborted when the store gave up on the unit of work; the
// latter is safe to retry.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if !inventory.ValidQuantity(it.Quantity) {
			return nil, &pricing.InvalidQuantityError{ProductID: it.ProductID, Quantity: it.Quantity}
		}
	}

	now := s.now().UTC()
	return transaction.ExecuteWithResult(ctx, s.tx, func(ctx context.Context) (*Order, error) {
		return s.commit(ctx, req, now)
	})
}

func (s *Service) commit(ctx context.Context, req CommitRequest, now time.Time) (*Order, error) {
	c, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	reservations := make([]inventory.Reservation, len(req.Items))
	for i, it := range req.Items {
		reservations[i] = inventory.Reservation{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	merged, err := inventory.Merge(reservations)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(merged))
	for i, r := range merged {
		ids[i] = r.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Verify every requested product was found, first missing in request order.
	items := make([]pricing.Item, len(req.Items))
	for i, it := range req.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		items[i] = pricing.Item{Product: p, Quantity: it.Quantity}
	}

	// Early rejection only; the ledger decrement below is the real guard.
	for _, r := range merged {
		if byID[r.ProductID].Stock < r.Quantity {
			return nil, &inventory.InsufficientStockError{ProductID: r.ProductID}
		}
	}

	quote, err := s.engine.Price(c.Location, items, now)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Reserve(ctx, reservations); err != nil {
		return nil, err
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: c.ID,
		Items:      make([]LineItem, len(quote.Lines)),
		Pricing:    quote.Breakdown,
		CreatedAt:  now,
	}
	for i, l := range quote.Lines {
		o.Items[i] = LineItem{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitBasePrice:  l.UnitBasePrice,
			UnitFinalPrice: l.UnitFinalPrice,
		}
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return o, nil
}

// Get returns the order with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}
