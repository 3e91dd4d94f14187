package customer

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// ErrEmailTaken is returned when registering a customer with an email that
// already belongs to another customer.
var ErrEmailTaken = errors.New("customer email already registered")

// LocationCode is the region a customer is billed in. It selects the location
// tariff applied to every line of the customer's orders.
type LocationCode string

const (
	LocationUS   LocationCode = "US"
	LocationEU   LocationCode = "EU"
	LocationASIA LocationCode = "ASIA"
)

// ParseLocation normalizes a location code. Unknown codes are kept as-is:
// pricing treats them as neutral.
func ParseLocation(s string) LocationCode {
	return LocationCode(strings.ToUpper(strings.TrimSpace(s)))
}

// Customer is a buyer as seen by pricing: identity and billing location.
type Customer struct {
	ID        string
	Email     string
	Name      string
	Location  LocationCode
	CreatedAt time.Time
}

// Repository defines lookup and persistence of customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
}
