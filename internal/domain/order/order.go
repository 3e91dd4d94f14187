package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/pricing"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is a committed customer order with its pricing. Orders are created
// only by a successful commit and never change afterwards.
type Order struct {
	ID         string
	CustomerID string
	Items      []LineItem
	Pricing    pricing.Breakdown
	CreatedAt  time.Time
}

// LineItem is a single priced line of an order, in request order.
type LineItem struct {
	ProductID      string
	Quantity       int
	UnitBasePrice  money.Money
	UnitFinalPrice money.Money
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
