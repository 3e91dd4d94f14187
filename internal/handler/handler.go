// Package handler exposes the order engine over HTTP under /api.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/events"
)

// HeaderIdempotencyKey lets clients retry POST /api/orders safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency maps client keys to the orders they produced.
type Idempotency interface {
	// Acquire claims key. When key already produced an order it returns that
	// order id and acquired is false.
	Acquire(ctx context.Context, key string) (orderID string, acquired bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

// Options holds the optional collaborators of a Handler.
type Options struct {
	// Idempotency enables the Idempotency-Key header when set.
	Idempotency Idempotency
	// Events receives committed orders. Defaults to events.Nop.
	Events events.Publisher
	// PublishTimeout bounds event publishing and idempotency key settlement
	// after a commit. Defaults to 5s.
	PublishTimeout time.Duration
	// Meter records commit outcomes. Defaults to a no-op meter.
	Meter metric.Meter
}

// Handler serves the customer, product and order endpoints.
type Handler struct {
	customers *customer.Service
	products  *product.Service
	orders    *order.Service

	idem           Idempotency
	events         events.Publisher
	publishTimeout time.Duration
	commits        metric.Int64Counter
}

// New constructs a Handler.
func New(
	customers *customer.Service,
	products *product.Service,
	orders *order.Service,
	opts Options,
) (*Handler, error) {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.Meter == nil {
		opts.Meter = noop.NewMeterProvider().Meter("")
	}
	commits, err := opts.Meter.Int64Counter("orders.commits",
		metric.WithDescription("Order commit attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "commits counter")
	}

	return &Handler{
		customers:      customers,
		products:       products,
		orders:         orders,
		idem:           opts.Idempotency,
		events:         opts.Events,
		publishTimeout: opts.PublishTimeout,
		commits:        commits,
	}, nil
}

// Router returns the API routes. Middlewares run inside the router so they
// can read the matched route pattern.
func (h *Handler) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.commitOrder)
			r.Get("/{id}", h.getOrder)
		})
		r.Route("/customers", func(r chi.Router) {
			r.Post("/", h.registerCustomer)
			r.Get("/{id}", h.getCustomer)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Post("/{id}/restock", h.restockProduct)
			r.Post("/{id}/sell", h.sellProduct)
		})
	})
	return r
}
