package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrStockOverflow is returned by AddStock when the resulting stock would
// exceed inventory.MaxQuantity.
var ErrStockOverflow = errors.New("stock would exceed 2147483647")

// Category tags a product for category-scoped promotions.
type Category string

const (
	CategoryElectronics Category = "ELECTRONICS"
	CategoryBooks       Category = "BOOKS"
	CategoryClothing    Category = "CLOTHING"
	CategoryHome        Category = "HOME"
	CategoryToys        Category = "TOYS"
)

var categories = map[Category]struct{}{
	CategoryElectronics: {},
	CategoryBooks:       {},
	CategoryClothing:    {},
	CategoryHome:        {},
	CategoryToys:        {},
}

// ParseCategory returns the category named by s (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := categories[c]
	return c, ok
}

// Product represents a catalog item available for purchase.
//
// Stock only ever decreases through an inventory.Ledger reservation.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       money.Money
	Stock       int
	Category    Category
	CreatedAt   time.Time
}

// Page is one page of a product listing.
type Page struct {
	Products []Product
	Total    int
	Page     int
	Limit    int
}

// Repository defines catalog persistence. GetByIDs returns only the products
// that exist; callers detect missing ids themselves.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	List(ctx context.Context, offset, limit int) ([]Product, int, error)
	// AddStock reports ErrStockOverflow instead of exceeding
	// inventory.MaxQuantity.
	AddStock(ctx context.Context, id string, amount int) (*Product, error)
}
