package customer

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvalidFieldError reports a registration field that failed validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RegisterRequest holds the input for registering a customer.
type RegisterRequest struct {
	Email    string
	Name     string
	Location string
}

// Service registers and looks up customers.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a customer Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register validates the request and persists a new customer.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Customer, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 255 {
		return nil, &InvalidFieldError{Field: "email", Reason: "must be a valid address"}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return nil, &InvalidFieldError{Field: "name", Reason: "must be 1-100 characters"}
	}
	loc := ParseLocation(req.Location)
	if loc == "" || len(loc) > 20 {
		return nil, &InvalidFieldError{Field: "location", Reason: "must be 1-20 characters"}
	}

	c := &Customer{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Location:  loc,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// Get returns the customer with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}
