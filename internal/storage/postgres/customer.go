package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	db *DB
}

// Create inserts a customer. It returns customer.ErrEmailTaken when the email
// is already registered.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO customers (id, email, name, location, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Email, c.Name, string(c.Location), c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return customer.ErrEmailTaken
		}
		return fmt.Errorf("creating customer %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a customer or customer.ErrNotFound.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	var (
		c   customer.Customer
		loc string
	)
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT id, email, name, location, created_at FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Email, &c.Name, &loc, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	c.Location = customer.LocationCode(loc)
	return &c, nil
}
