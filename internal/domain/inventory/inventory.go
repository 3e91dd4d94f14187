// Package inventory defines the conditional stock decrement shared by order
// commits and direct sales.
package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
)

// MaxQuantity bounds a single reservation and a product's stock. It matches
// the INTEGER stock column.
const MaxQuantity = math.MaxInt32

// ErrInvalidQuantity is returned for a reservation outside [1, MaxQuantity],
// including duplicate lines whose sum exceeds MaxQuantity.
var ErrInvalidQuantity = errors.New("reservation quantity must be between 1 and 2147483647")

// ValidQuantity reports whether qty is within [1, MaxQuantity].
func ValidQuantity(qty int) bool {
	return qty >= 1 && qty <= MaxQuantity
}

// Reservation asks for Quantity units of a product.
type Reservation struct {
	ProductID string
	Quantity  int
}

// InsufficientStockError reports the product whose stock could not cover the
// requested quantity.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// Ledger decrements stock conditionally.
//
// Reserve applies every reservation or none of them: each product's stock is
// decremented only if it is at least the requested quantity, evaluated and
// applied atomically by the backing store. When called inside a unit of work
// (see transaction.Scope) the decrement belongs to that unit of work and is
// undone by its rollback.
type Ledger interface {
	Reserve(ctx context.Context, items []Reservation) error
}

// Merge sums quantities of reservations that name the same product, keeping
// the order in which products first appear. Quantities must already be
// valid; a sum above MaxQuantity is reported as ErrInvalidQuantity.
func Merge(items []Reservation) ([]Reservation, error) {
	idx := make(map[string]int, len(items))
	out := make([]Reservation, 0, len(items))
	for _, it := range items {
		i, ok := idx[it.ProductID]
		if !ok {
			idx[it.ProductID] = len(out)
			out = append(out, it)
			continue
		}
		if out[i].Quantity > MaxQuantity-it.Quantity {
			return nil, fmt.Errorf("reserve %s: %w", it.ProductID, ErrInvalidQuantity)
		}
		out[i].Quantity += it.Quantity
	}
	return out, nil
}

// Normalize rejects quantities outside [1, MaxQuantity] and merges duplicate
// products.
func Normalize(items []Reservation) ([]Reservation, error) {
	for _, it := range items {
		if !ValidQuantity(it.Quantity) {
			return nil, fmt.Errorf("reserve %s: %w", it.ProductID, ErrInvalidQuantity)
		}
	}
	return Merge(items)
}
