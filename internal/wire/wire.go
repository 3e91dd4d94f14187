// Package wire encodes domain values as JSON for the HTTP API and the order
// event stream. Amounts are written as JSON numbers with two decimals.
package wire

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

func amount(e *jx.Encoder, m money.Money) {
	e.Num(jx.Num(m.String()))
}

func rate(e *jx.Encoder, r money.Rate) {
	e.Num(jx.Num(r.String()))
}

func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

// EncodeOrder writes a committed order.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("baseUnitPrice")
		amount(e, it.UnitBasePrice)
		e.FieldStart("finalUnitPrice")
		amount(e, it.UnitFinalPrice)
		e.ObjEnd()
	}
	e.ArrEnd()

	p := o.Pricing
	e.FieldStart("pricing")
	e.ObjStart()
	e.FieldStart("basePrice")
	amount(e, p.BasePrice)
	e.FieldStart("locationTariffRate")
	rate(e, p.LocationTariffRate)
	e.FieldStart("appliedDiscount")
	if d := p.AppliedDiscount; d != nil {
		e.ObjStart()
		e.FieldStart("type")
		e.Str(string(d.Type))
		e.FieldStart("rate")
		rate(e, d.Rate)
		e.ObjEnd()
	} else {
		e.Null()
	}
	e.FieldStart("discountAmount")
	amount(e, p.DiscountAmount)
	e.FieldStart("finalPrice")
	amount(e, p.FinalPrice)
	e.ObjEnd()

	e.FieldStart("createdAt")
	timestamp(e, o.CreatedAt)
	e.ObjEnd()
}

// EncodeCustomer writes a customer.
func EncodeCustomer(e *jx.Encoder, c *customer.Customer) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("email")
	e.Str(c.Email)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("location")
	e.Str(string(c.Location))
	e.FieldStart("createdAt")
	timestamp(e, c.CreatedAt)
	e.ObjEnd()
}

// EncodeProduct writes a product.
func EncodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	amount(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("createdAt")
	timestamp(e, p.CreatedAt)
	e.ObjEnd()
}

// EncodeProductPage writes one page of a product listing.
func EncodeProductPage(e *jx.Encoder, page *product.Page) {
	e.ObjStart()
	e.FieldStart("products")
	e.ArrStart()
	for i := range page.Products {
		EncodeProduct(e, &page.Products[i])
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Int(page.Total)
	e.FieldStart("page")
	e.Int(page.Page)
	e.FieldStart("limit")
	e.Int(page.Limit)
	e.ObjEnd()
}
