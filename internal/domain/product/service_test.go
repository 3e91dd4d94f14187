package product_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/storage/memory"
)

func newService() *product.Service {
	s := memory.New()
	return product.NewService(s.Products(), s.Ledger())
}

func create(t *testing.T, svc *product.Service, stock int) *product.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), product.CreateRequest{
		Name:        "Headphones",
		Description: "Over-ear",
		Price:       money.MustParse("19.999"),
		Stock:       stock,
		Category:    "electronics",
	})
	require.NoError(t, err)
	return p
}

func TestService_Create(t *testing.T) {
	svc := newService()
	p := create(t, svc, 3)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "20.00", p.Price.String())
	assert.Equal(t, product.CategoryElectronics, p.Category)
}

func TestService_CreateValidation(t *testing.T) {
	svc := newService()
	valid := product.CreateRequest{
		Name:        "n",
		Description: "d",
		Price:       money.MustParse("1"),
		Category:    "BOOKS",
	}

	tests := []struct {
		name  string
		edit  func(r *product.CreateRequest)
		field string
	}{
		{name: "Name", edit: func(r *product.CreateRequest) { r.Name = "" }, field: "name"},
		{name: "Description", edit: func(r *product.CreateRequest) { r.Description = "" }, field: "description"},
		{name: "Price", edit: func(r *product.CreateRequest) { r.Price = money.MustParse("-1") }, field: "price"},
		{name: "Stock", edit: func(r *product.CreateRequest) { r.Stock = -1 }, field: "stock"},
		{name: "StockAboveMax", edit: func(r *product.CreateRequest) { r.Stock = inventory.MaxQuantity + 1 }, field: "stock"},
		{name: "Category", edit: func(r *product.CreateRequest) { r.Category = "GARDEN" }, field: "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.edit(&req)
			_, err := svc.Create(context.Background(), req)
			var fieldErr *product.InvalidFieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)
		})
	}
}

func TestService_List(t *testing.T) {
	svc := newService()
	for range 12 {
		create(t, svc, 1)
	}

	page, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, product.DefaultPageSize, page.Limit)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Products, 10)

	page, err = svc.List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)

	page, err = svc.List(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, product.MaxPageSize, page.Limit)
}

func TestService_RestockAndSell(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	p := create(t, svc, 2)

	got, err := svc.Restock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	got, err = svc.Sell(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	_, err = svc.Sell(ctx, p.ID, 1)
	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)

	_, err = svc.Sell(ctx, "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = svc.Restock(ctx, p.ID, 0)
	var fieldErr *product.InvalidFieldError
	require.ErrorAs(t, err, &fieldErr)
}

func TestService_AmountBounds(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	p := create(t, svc, 2)

	for _, amount := range []int{inventory.MaxQuantity + 1, 1<<32 + 1} {
		_, err := svc.Sell(ctx, p.ID, amount)
		var fieldErr *product.InvalidFieldError
		require.ErrorAs(t, err, &fieldErr, "sell %d", amount)
		assert.Equal(t, "amount", fieldErr.Field)

		_, err = svc.Restock(ctx, p.ID, amount)
		require.ErrorAs(t, err, &fieldErr, "restock %d", amount)
	}

	_, err := svc.Restock(ctx, p.ID, inventory.MaxQuantity)
	require.ErrorIs(t, err, product.ErrStockOverflow)

	got, err := svc.Restock(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}
