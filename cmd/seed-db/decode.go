package main

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

func decodeCustomers(data []byte) ([]customer.RegisterRequest, error) {
	var out []customer.RegisterRequest
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var req customer.RegisterRequest
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "email":
				req.Email, err = d.Str()
			case "name":
				req.Name, err = d.Str()
			case "location":
				req.Location, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		out = append(out, req)
		return nil
	})
	return out, err
}

func decodeProducts(data []byte) ([]product.CreateRequest, error) {
	var out []product.CreateRequest
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var req product.CreateRequest
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				req.Name, err = d.Str()
			case "description":
				req.Description, err = d.Str()
			case "price":
				req.Price, err = decodePrice(d)
			case "stock":
				req.Stock, err = d.Int()
			case "category":
				req.Category, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		out = append(out, req)
		return nil
	})
	return out, err
}

// decodePrice accepts "12.50" or 12.50.
func decodePrice(d *jx.Decoder) (money.Money, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return money.Money{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return money.Money{}, err
		}
		raw = string(n)
	default:
		return money.Money{}, errors.Errorf("price: unexpected %s", d.Next())
	}
	return money.Parse(raw)
}
