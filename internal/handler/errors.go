package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/inventory"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/pricing"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/storage/redis"
	"github.com/keteik/simple-inventory-management-system/internal/transaction"
	"github.com/keteik/simple-inventory-management-system/pkg/httpmiddleware"
)

// requestError reports a malformed request body or query.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// status maps a service error to an HTTP status. Unknown errors are 500.
func status(err error) int {
	var (
		reqErr      *requestError
		custField   *customer.InvalidFieldError
		prodField   *product.InvalidFieldError
		qtyErr      *pricing.InvalidQuantityError
		stockErr    *inventory.InsufficientStockError
		missingProd *order.ProductNotFoundError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.As(err, &custField),
		errors.As(err, &prodField),
		errors.As(err, &qtyErr),
		errors.As(err, &stockErr),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, product.ErrStockOverflow),
		errors.Is(err, inventory.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.As(err, &missingProd),
		errors.Is(err, order.ErrCustomerNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transaction.ErrAborted),
		errors.Is(err, redis.ErrInProgress),
		errors.Is(err, customer.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server errors and writes the JSON error body. Messages of
// server errors are not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := status(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.Error(err),
			zap.String("request_id", httpmiddleware.RequestIDFromContext(r.Context())),
		)
		msg = "internal server error"
	}
	writeMessage(w, code, msg)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	httpmiddleware.WriteError(w, code, msg)
}

func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
