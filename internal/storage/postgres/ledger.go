package postgres

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
)

var _ inventory.Ledger = (*Ledger)(nil)

// Ledger implements inventory.Ledger with one conditional UPDATE. Each row is
// decremented only if its stock covers the requested quantity; when any row
// is left untouched the whole statement is rolled back to a savepoint.
type Ledger struct {
	db *DB
}

const reserveSQL = `
UPDATE products p
SET stock = p.stock - r.qty
FROM unnest($1::text[], $2::int[]) AS r(id, qty)
WHERE p.id = r.id AND p.stock >= r.qty
RETURNING p.id`

func (l *Ledger) Reserve(ctx context.Context, items []inventory.Reservation) error {
	merged, err := inventory.Normalize(items)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		return nil
	}

	// Sorted ids keep lock acquisition order stable across concurrent commits.
	sorted := slices.Clone(merged)
	slices.SortFunc(sorted, func(a, b inventory.Reservation) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})
	ids := make([]string, len(sorted))
	qty := make([]int32, len(sorted))
	for i, r := range sorted {
		ids[i] = r.ProductID
		qty[i] = int32(r.Quantity) // Normalize bounds quantities to inventory.MaxQuantity.
	}

	return l.db.savepoint(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids,
		); err != nil {
			return fmt.Errorf("locking products: %w", err)
		}

		rows, err := tx.Query(ctx, reserveSQL, ids, qty)
		if err != nil {
			return fmt.Errorf("reserving stock: %w", err)
		}
		updated, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("reserving stock: %w", err)
		}
		if len(updated) == len(merged) {
			return nil
		}

		done := make(map[string]struct{}, len(updated))
		for _, id := range updated {
			done[id] = struct{}{}
		}
		for _, r := range merged {
			if _, ok := done[r.ProductID]; !ok {
				return &inventory.InsufficientStockError{ProductID: r.ProductID}
			}
		}
		return &inventory.InsufficientStockError{ProductID: merged[0].ProductID}
	})
}
