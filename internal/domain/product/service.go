package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
)

const (
	// DefaultPageSize is used when a listing does not specify a limit.
	DefaultPageSize = 10
	// MaxPageSize caps the listing limit.
	MaxPageSize = 100
)

// InvalidFieldError reports a product field that failed validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CreateRequest holds the input for adding a product to the catalog.
type CreateRequest struct {
	Name        string
	Description string
	Price       money.Money
	Stock       int
	Category    string
}

// Service manages the catalog and its stock levels.
type Service struct {
	repo   Repository
	ledger inventory.Ledger
	now    func() time.Time
}

// NewService creates a product Service. Sales go through ledger so that they
// share the conditional decrement used by order commits.
func NewService(repo Repository, ledger inventory.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger, now: time.Now}
}

// Create validates and persists a new product. The price is stored rounded to
// cents.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 50 {
		return nil, &InvalidFieldError{Field: "name", Reason: "must be 1-50 characters"}
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" || len(desc) > 50 {
		return nil, &InvalidFieldError{Field: "description", Reason: "must be 1-50 characters"}
	}
	if req.Price.IsNegative() {
		return nil, &InvalidFieldError{Field: "price", Reason: "must be >= 0"}
	}
	if req.Stock < 0 || req.Stock > inventory.MaxQuantity {
		return nil, &InvalidFieldError{Field: "stock", Reason: "must be between 0 and 2147483647"}
	}
	cat, ok := ParseCategory(req.Category)
	if !ok {
		return nil, &InvalidFieldError{Field: "category", Reason: "unknown category"}
	}

	p := &Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: desc,
		Price:       req.Price.Round(),
		Stock:       req.Stock,
		Category:    cat,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// List returns a page of the catalog. Pages are 1-based; non-positive values
// fall back to the first page and DefaultPageSize.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	products, total, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &Page{Products: products, Total: total, Page: page, Limit: limit}, nil
}

// Restock increases the stock of a product by amount. The resulting stock may
// not exceed inventory.MaxQuantity.
func (s *Service) Restock(ctx context.Context, id string, amount int) (*Product, error) {
	if !inventory.ValidQuantity(amount) {
		return nil, &InvalidFieldError{Field: "amount", Reason: "must be between 1 and 2147483647"}
	}
	return s.repo.AddStock(ctx, id, amount)
}

// Sell decreases the stock of a single product outside of an order. It
// reports *inventory.InsufficientStockError when stock is lower than amount.
func (s *Service) Sell(ctx context.Context, id string, amount int) (*Product, error) {
	if !inventory.ValidQuantity(amount) {
		return nil, &InvalidFieldError{Field: "amount", Reason: "must be between 1 and 2147483647"}
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.ledger.Reserve(ctx, []inventory.Reservation{{ProductID: id, Quantity: amount}}); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
