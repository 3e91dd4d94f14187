package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
)

const maxBodySize = 1 << 20

// decodeBody reads r's body as a JSON object, calling field for every key.
func decodeBody(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("body exceeds %d bytes", tooLarge.Limit)
		}
		return errors.Wrap(err, "read body")
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return reqErr
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func decodeCommit(w http.ResponseWriter, r *http.Request) (order.CommitRequest, error) {
	var req order.CommitRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customerId":
			req.CustomerID, err = d.Str()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var it order.Item
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						it.ProductID, err = d.Str()
					case "quantity":
						it.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				if it.ProductID == "" {
					return badRequest("item productId is required")
				}
				req.Items = append(req.Items, it)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if req.CustomerID == "" {
		return req, badRequest("customerId is required")
	}
	return req, nil
}

func decodeRegister(w http.ResponseWriter, r *http.Request) (customer.RegisterRequest, error) {
	var req customer.RegisterRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
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
	})
	return req, err
}

func decodeCreateProduct(w http.ResponseWriter, r *http.Request) (product.CreateRequest, error) {
	var (
		req      product.CreateRequest
		hasPrice bool
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			req.Name, err = d.Str()
		case "description":
			req.Description, err = d.Str()
		case "price":
			req.Price, err = decodeMoney(d)
			hasPrice = true
		case "stock":
			req.Stock, err = d.Int()
		case "category":
			req.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if !hasPrice {
		return req, badRequest("price is required")
	}
	return req, nil
}

// decodeMoney accepts a JSON number or a numeric string.
func decodeMoney(d *jx.Decoder) (money.Money, error) {
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
		return money.Money{}, badRequest("price must be a number")
	}
	m, err := money.Parse(raw)
	if err != nil {
		return money.Money{}, badRequest("price %q is not a decimal", raw)
	}
	return m, nil
}

func decodeAmount(w http.ResponseWriter, r *http.Request) (int, error) {
	var (
		amount int
		found  bool
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "amount" {
			return d.Skip()
		}
		found = true
		v, err := d.Int()
		amount = v
		return err
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, badRequest("amount is required")
	}
	return amount, nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return v, nil
}
