package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/pricing"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items live in order_items keyed by their position in the order.
type OrderRepository struct {
	db *DB
}

// Create persists an order and its line items. Items are sent in one batch.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	b := o.Pricing
	var (
		discountType *string
		discountRate *decimal.Decimal
	)
	if d := b.AppliedDiscount; d != nil {
		t := string(d.Type)
		rate := d.Rate.Decimal()
		discountType, discountRate = &t, &rate
	}

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO orders (
		id, customer_id, base_price, location_tariff_rate,
		discount_type, discount_rate, discount_amount, final_price, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.CustomerID, b.BasePrice.Decimal(), b.LocationTariffRate.Decimal(),
		discountType, discountRate, b.DiscountAmount.Decimal(), b.FinalPrice.Decimal(), o.CreatedAt,
	)
	for i, it := range o.Items {
		batch.Queue(`INSERT INTO order_items (
			order_id, position, product_id, quantity, unit_base_price, unit_final_price
		) VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, it.ProductID, it.Quantity, it.UnitBasePrice.Decimal(), it.UnitFinalPrice.Decimal(),
		)
	}

	if err := r.db.q(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its line items or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	q := r.db.q(ctx)

	var (
		o                             order.Order
		base, tariff, discount, final decimal.Decimal
		discountType                  *string
		discountRate                  *decimal.Decimal
	)
	err := q.QueryRow(ctx, `SELECT
		id, customer_id, base_price, location_tariff_rate,
		discount_type, discount_rate, discount_amount, final_price, created_at
	FROM orders WHERE id = $1`, id).Scan(
		&o.ID, &o.CustomerID, &base, &tariff,
		&discountType, &discountRate, &discount, &final, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o.Pricing = pricing.Breakdown{
		BasePrice:          money.New(base),
		LocationTariffRate: money.NewRate(tariff),
		DiscountAmount:     money.New(discount),
		FinalPrice:         money.New(final),
	}
	if discountType != nil && discountRate != nil {
		o.Pricing.AppliedDiscount = &pricing.AppliedDiscount{
			Type: pricing.DiscountType(*discountType),
			Rate: money.NewRate(*discountRate),
		}
	}

	rows, err := q.Query(ctx, `SELECT product_id, quantity, unit_base_price, unit_final_price
	FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q items: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.LineItem, error) {
		var (
			it        order.LineItem
			unitBase  decimal.Decimal
			unitFinal decimal.Decimal
		)
		if err := row.Scan(&it.ProductID, &it.Quantity, &unitBase, &unitFinal); err != nil {
			return order.LineItem{}, err
		}
		it.UnitBasePrice = money.New(unitBase)
		it.UnitFinalPrice = money.New(unitFinal)
		return it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting order %q items: %w", id, err)
	}
	return &o, nil
}
