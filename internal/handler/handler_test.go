package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/keteik/simple-inventory-management-system/internal/domain/customer"
	"github.com/keteik/simple-inventory-management-system/internal/domain/money"
	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/domain/pricing"
	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/storage/memory"
	"github.com/keteik/simple-inventory-management-system/internal/storage/redis"
)

// memoryIdempotency mirrors the Redis store: "" marks a pending key, and
// Complete and Release fail on a done context.
type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]string

	afterAcquire func()
	beforeSettle func()
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]string{}}
}

func (m *memoryIdempotency) Acquire(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	switch {
	case !ok:
		m.keys[key] = ""
		if m.afterAcquire != nil {
			m.afterAcquire()
		}
		return "", true, nil
	case v == "":
		return "", false, redis.ErrInProgress
	default:
		return v, false, nil
	}
}

func (m *memoryIdempotency) Complete(ctx context.Context, key, orderID string) error {
	if err := m.settle(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, key string) error {
	if err := m.settle(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memoryIdempotency) settle(ctx context.Context) error {
	if m.beforeSettle != nil {
		m.beforeSettle()
	}
	return ctx.Err()
}

func (m *memoryIdempotency) pending(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	return ok && v == ""
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []string
	err    error
}

func (p *recordingPublisher) OrderCommitted(_ context.Context, o *order.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, o.ID)
	return p.err
}

type fixture struct {
	router    http.Handler
	store     *memory.Store
	idem      *memoryIdempotency
	events    *recordingPublisher
	reader    *sdkmetric.ManualReader
	customers *customer.Service
	products  *product.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	rules := pricing.MustRuleSet(
		map[customer.LocationCode]money.Rate{customer.LocationEU: money.MustParseRate("1.15")},
		[]pricing.VolumeRule{{MinItems: 10, Rate: money.MustParseRate("0.20")}},
		nil,
	)
	f := &fixture{
		store:     store,
		idem:      newMemoryIdempotency(),
		events:    &recordingPublisher{},
		reader:    sdkmetric.NewManualReader(),
		customers: customer.NewService(store.Customers()),
		products:  product.NewService(store.Products(), store.Ledger()),
	}
	orders := order.NewService(store, store.Customers(), store.Products(), store.Ledger(), store.Orders(), pricing.NewEngine(rules))

	h, err := New(f.customers, f.products, orders, Options{
		Idempotency: f.idem,
		Events:      f.events,
		Meter:       sdkmetric.NewMeterProvider(sdkmetric.WithReader(f.reader)).Meter("test"),
	})
	require.NoError(t, err)
	f.router = h.Router()
	return f
}

func (f *fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	return f.doContext(context.Background(), method, path, body, header...)
}

func (f *fixture) doContext(ctx context.Context, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequestWithContext(ctx, method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) customer(t *testing.T, location string) string {
	t.Helper()
	c, err := f.customers.Register(context.Background(), customer.RegisterRequest{
		Email:    location + "@example.com",
		Name:     "Test " + location,
		Location: location,
	})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) product(t *testing.T, price string, stock int) string {
	t.Helper()
	p, err := f.products.Create(context.Background(), product.CreateRequest{
		Name:        "Widget",
		Description: "A widget",
		Price:       money.MustParse(price),
		Stock:       stock,
		Category:    "HOME",
	})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

type orderBody struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Items      []struct {
		ProductID      string      `json:"productId"`
		Quantity       int         `json:"quantity"`
		BaseUnitPrice  json.Number `json:"baseUnitPrice"`
		FinalUnitPrice json.Number `json:"finalUnitPrice"`
	} `json:"items"`
	Pricing struct {
		BasePrice          json.Number `json:"basePrice"`
		LocationTariffRate json.Number `json:"locationTariffRate"`
		AppliedDiscount    *struct {
			Type string      `json:"type"`
			Rate json.Number `json:"rate"`
		} `json:"appliedDiscount"`
		DiscountAmount json.Number `json:"discountAmount"`
		FinalPrice     json.Number `json:"finalPrice"`
	} `json:"pricing"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func commitBody(customerID string, items ...string) string {
	var b strings.Builder
	b.WriteString(`{"customerId":"` + customerID + `","items":[`)
	for i := 0; i+1 < len(items); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"productId":"` + items[i] + `","quantity":` + items[i+1] + `}`)
	}
	b.WriteString(`]}`)
	return b.String()
}

func TestCommitOrder(t *testing.T) {
	f := newFixture(t)
	cust := f.customer(t, "EU")
	prod := f.product(t, "50.00", 12)

	w := f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "10"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	o := decode[orderBody](t, w)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, cust, o.CustomerID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "57.50", o.Items[0].BaseUnitPrice.String())
	assert.Equal(t, "46.00", o.Items[0].FinalUnitPrice.String())
	assert.Equal(t, "575.00", o.Pricing.BasePrice.String())
	assert.Equal(t, "1.15", o.Pricing.LocationTariffRate.String())
	require.NotNil(t, o.Pricing.AppliedDiscount)
	assert.Equal(t, "volume", o.Pricing.AppliedDiscount.Type)
	assert.Equal(t, "0.2", o.Pricing.AppliedDiscount.Rate.String())
	assert.Equal(t, "115.00", o.Pricing.DiscountAmount.String())
	assert.Equal(t, "460.00", o.Pricing.FinalPrice.String())

	assert.Equal(t, 2, f.stock(t, prod))
	assert.Equal(t, []string{o.ID}, f.events.orders)

	got := f.do(http.MethodGet, "/api/orders/"+o.ID, "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.JSONEq(t, w.Body.String(), got.Body.String())
}

func TestCommitOrder_NoDiscount(t *testing.T) {
	f := newFixture(t)
	cust := f.customer(t, "US")
	prod := f.product(t, "10.00", 5)

	w := f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "2"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"appliedDiscount":null`)

	o := decode[orderBody](t, w)
	assert.Equal(t, "1", o.Pricing.LocationTariffRate.String())
	assert.Equal(t, "0.00", o.Pricing.DiscountAmount.String())
	assert.Equal(t, "20.00", o.Pricing.FinalPrice.String())
}

func TestCommitOrder_Errors(t *testing.T) {
	f := newFixture(t)
	cust := f.customer(t, "EU")
	prod := f.product(t, "5.00", 1)

	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{name: "InvalidJSON", body: `{"customerId":`, code: http.StatusBadRequest},
		{name: "MissingCustomer", body: `{"items":[{"productId":"p","quantity":1}]}`, code: http.StatusBadRequest, message: "customerId is required"},
		{name: "EmptyItems", body: commitBody(cust), code: http.StatusBadRequest, message: order.ErrEmptyItems.Error()},
		{name: "ZeroQuantity", body: commitBody(cust, prod, "0"), code: http.StatusBadRequest},
		{name: "UnknownCustomer", body: commitBody("nope", prod, "1"), code: http.StatusNotFound, message: order.ErrCustomerNotFound.Error()},
		{name: "UnknownProduct", body: commitBody(cust, prod, "1", "ghost", "1"), code: http.StatusNotFound, message: "product ghost not found"},
		{name: "InsufficientStock", body: commitBody(cust, prod, "2"), code: http.StatusBadRequest},
		{name: "DuplicateLinesExceedStock", body: commitBody(cust, prod, "1", prod, "1"), code: http.StatusBadRequest},
		{name: "QuantityAboveMax", body: commitBody(cust, prod, "2147483648"), code: http.StatusBadRequest},
		{name: "DuplicateLinesOverflow", body: commitBody(cust, prod, "4611686018427387904", prod, "4611686018427387904"), code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/orders", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			body := decode[errorBody](t, w)
			assert.Equal(t, tt.code, body.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}

	assert.Equal(t, 1, f.stock(t, prod))
	assert.Empty(t, f.events.orders)
}

func TestCommitOrder_Idempotency(t *testing.T) {
	f := newFixture(t)
	cust := f.customer(t, "EU")
	prod := f.product(t, "3.00", 5)
	body := commitBody(cust, prod, "2")

	first := f.do(http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplay))
	assert.Equal(t, decode[orderBody](t, first).ID, decode[orderBody](t, second).ID)
	assert.Equal(t, 3, f.stock(t, prod))
	assert.Len(t, f.events.orders, 1)

	t.Run("FailureReleasesKey", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "10"), HeaderIdempotencyKey, "k2")
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "1"), HeaderIdempotencyKey, "k2")
		require.Equal(t, http.StatusCreated, w.Code)
	})
	t.Run("InProgress", func(t *testing.T) {
		_, acquired, err := f.idem.Acquire(context.Background(), "k3")
		require.NoError(t, err)
		require.True(t, acquired)

		w := f.do(http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k3")
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestCommitOrder_IdempotencyOutlivesRequest(t *testing.T) {
	t.Run("CancelledAfterCommit", func(t *testing.T) {
		f := newFixture(t)
		cust := f.customer(t, "EU")
		prod := f.product(t, "3.00", 5)
		body := commitBody(cust, prod, "1")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.idem.beforeSettle = cancel

		first := f.doContext(ctx, http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k1")
		require.Equal(t, http.StatusCreated, first.Code)
		assert.False(t, f.idem.pending("k1"))

		f.idem.beforeSettle = nil
		retry := f.do(http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k1")
		require.Equal(t, http.StatusOK, retry.Code)
		assert.Equal(t, decode[orderBody](t, first).ID, decode[orderBody](t, retry).ID)
		assert.Equal(t, 4, f.stock(t, prod))
	})
	t.Run("CancelledBeforeCommit", func(t *testing.T) {
		f := newFixture(t)
		cust := f.customer(t, "EU")
		prod := f.product(t, "3.00", 5)
		body := commitBody(cust, prod, "1")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.idem.afterAcquire = cancel

		w := f.doContext(ctx, http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k1")
		require.Equal(t, http.StatusConflict, w.Code)
		assert.False(t, f.idem.pending("k1"))
		assert.Equal(t, 5, f.stock(t, prod))

		f.idem.afterAcquire = nil
		w = f.do(http.MethodPost, "/api/orders", body, HeaderIdempotencyKey, "k1")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 4, f.stock(t, prod))
	})
}

func TestCommitOrder_PublishFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	cust := f.customer(t, "EU")
	prod := f.product(t, "1.00", 1)

	w := f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "1"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, f.events.orders, 1)
	assert.Equal(t, 0, f.stock(t, prod))
}

func TestCommitOrder_Metrics(t *testing.T) {
	f := newFixture(t)
	cust := f.customer(t, "EU")
	prod := f.product(t, "1.00", 1)

	f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "1"))
	f.do(http.MethodPost, "/api/orders", commitBody(cust, prod, "1"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(t.Context(), &rm))

	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "orders.commits" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				outcomes[v.AsString()] = dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"committed": 1, "rejected": 1}, outcomes)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/orders/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, order.ErrNotFound.Error(), decode[errorBody](t, w).Message)
}

func TestCustomers(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/customers", `{"email":"Ann@Example.com","name":"Ann","location":"eu"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := decode[struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Location string `json:"location"`
	}](t, w)
	assert.Equal(t, "ann@example.com", c.Email)
	assert.Equal(t, "EU", c.Location)

	got := f.do(http.MethodGet, "/api/customers/"+c.ID, "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.JSONEq(t, w.Body.String(), got.Body.String())

	dup := f.do(http.MethodPost, "/api/customers", `{"email":"ann@example.com","name":"Ann","location":"EU"}`)
	assert.Equal(t, http.StatusConflict, dup.Code)

	bad := f.do(http.MethodPost, "/api/customers", `{"email":"not-an-email","name":"Ann","location":"EU"}`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/customers/nope", "").Code)
}

func TestProducts(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/products",
		`{"name":"Lamp","description":"Desk lamp","price":"19.999","stock":3,"category":"home"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[struct {
		ID       string      `json:"id"`
		Price    json.Number `json:"price"`
		Category string      `json:"category"`
	}](t, w)
	assert.Equal(t, "20.00", p.Price.String())
	assert.Equal(t, "HOME", p.Category)

	w = f.do(http.MethodPost, "/api/products",
		`{"name":"Book","description":"Novel","price":12.5,"stock":1,"category":"BOOKS"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("Validation", func(t *testing.T) {
		for _, body := range []string{
			`{"name":"X","description":"Y","stock":1,"category":"HOME"}`,
			`{"name":"X","description":"Y","price":true,"stock":1,"category":"HOME"}`,
			`{"name":"X","description":"Y","price":"abc","stock":1,"category":"HOME"}`,
			`{"name":"X","description":"Y","price":1,"stock":1,"category":"GARDEN"}`,
			`{"name":"X","description":"Y","price":-1,"stock":1,"category":"HOME"}`,
		} {
			assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/products", body).Code, body)
		}
	})

	t.Run("List", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/products?page=2&limit=1", "")
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[struct {
			Products []struct {
				Name string `json:"name"`
			} `json:"products"`
			Total int `json:"total"`
			Page  int `json:"page"`
			Limit int `json:"limit"`
		}](t, w)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 1, page.Limit)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Book", page.Products[0].Name)

		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/products?page=0", "").Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/products?limit=x", "").Code)
	})

	t.Run("Stock", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/products/"+p.ID+"/restock", `{"amount":2}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 5, f.stock(t, p.ID))

		w = f.do(http.MethodPost, "/api/products/"+p.ID+"/sell", `{"amount":4}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 1, f.stock(t, p.ID))

		w = f.do(http.MethodPost, "/api/products/"+p.ID+"/sell", `{"amount":2}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 1, f.stock(t, p.ID))

		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/products/"+p.ID+"/restock", `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/products/"+p.ID+"/restock", `{"amount":0}`).Code)
		assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/products/ghost/restock", `{"amount":1}`).Code)
		assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/products/ghost/sell", `{"amount":1}`).Code)

		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/products/"+p.ID+"/sell", `{"amount":4294967297}`).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/products/"+p.ID+"/restock", `{"amount":2147483647}`).Code)
		assert.Equal(t, 1, f.stock(t, p.ID))
	})
}

func TestRouter_Fallbacks(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/unknown", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodDelete, "/api/orders/x", "").Code)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, status(errors.New("boom")))
	assert.Equal(t, http.StatusConflict, status(errors.Wrap(redis.ErrInProgress, "acquire")))
}
