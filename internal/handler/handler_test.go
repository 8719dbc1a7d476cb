package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/menu-engine/internal/domain/order"
	"github.com/xenking/menu-engine/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
	err  error
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	orders map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

// --- Helpers ---

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func opt(id, modifier string) product.Option {
	return product.Option{ID: id, Name: product.Text{"en": id}, PriceModifier: d(modifier), Available: true}
}

func catalog() map[string]*product.Product {
	return map[string]*product.Product{
		"margherita": {
			ID:         "margherita",
			MerchantID: "m1",
			Name:       product.Text{"en": "Margherita"},
			BasePrice:  d("25.50"),
			Available:  true,
			Groups: []product.OptionGroup{
				{
					ID:            "size",
					Name:          product.Text{"en": "Size"},
					Type:          product.GroupSize,
					Required:      true,
					MinSelections: 1,
					MaxSelections: product.Bounded(1),
					Available:     true,
					Options:       []product.Option{opt("regular", "0"), opt("large", "5"), opt("jumbo", "10")},
				},
				{
					ID:            "cheese",
					Name:          product.Text{"en": "Cheese"},
					Type:          product.GroupAddon,
					MaxSelections: product.Bounded(3),
					Available:     true,
					SortOrder:     1,
					Options:       []product.Option{opt("cheddar", "3"), opt("swiss", "3.5"), opt("blue", "4")},
				},
			},
		},
		"soup": {
			ID:         "soup",
			MerchantID: "m1",
			BasePrice:  d("8.00"),
			Available:  false,
		},
	}
}

type fixture struct {
	mux      *http.ServeMux
	products *mockProductRepo
	orders   *mockOrderRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	products := &mockProductRepo{byID: catalog()}
	orders := &mockOrderRepo{orders: map[string]*order.Order{}}

	svc, err := order.NewService(products, orders, order.Options{
		Limits: order.Limits{MaxLines: 10, MaxQuantity: 99, MaxInstructionLength: 200},
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(svc).Register(mux)
	return &fixture{mux: mux, products: products, orders: orders}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestQuote(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/product/margherita/quote",
		`{"quantity":2,"selections":{"size":["large"],"cheese":["cheddar","swiss"]},"instructions":"well done"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"unitPrice": "37.00",
		"totalPrice": "74.00",
		"snapshot": {
			"product": {"id": "margherita", "name": {"en": "Margherita"}, "basePrice": "25.50", "effectivePrice": "25.50"},
			"quantity": 2,
			"groups": [
				{"id": "size", "name": {"en": "Size"}, "type": "size", "options": [
					{"id": "large", "name": {"en": "large"}, "priceModifier": "5.00"}
				]},
				{"id": "cheese", "name": {"en": "Cheese"}, "type": "addon", "options": [
					{"id": "cheddar", "name": {"en": "cheddar"}, "priceModifier": "3.00"},
					{"id": "swiss", "name": {"en": "swiss"}, "priceModifier": "3.50"}
				]}
			],
			"unitPrice": "37.00",
			"totalPrice": "74.00",
			"instructions": "well done"
		}
	}`, w.Body.String())
}

func TestQuote_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing required group",
			target:     "/api/product/margherita/quote",
			body:       `{"quantity":1,"selections":{"cheese":["gouda"]}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody: `{"code":422,"message":"invalid selection","violations":[
				{"kind":"constraint_violation","groupId":"size","reason":"below minimum"},
				{"kind":"invalid_option_reference","groupId":"cheese","optionId":"gouda","reason":"option not in group"}
			]}`,
		},
		{
			name:       "invalid quantity",
			target:     "/api/product/margherita/quote",
			body:       `{"quantity":0,"selections":{"size":["large"]}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			target:     "/api/product/margherita/quote",
			body:       `{"quantity":"two"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown product",
			target:     "/api/product/missing/quote",
			body:       `{"quantity":1}`,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"code":404,"message":"product missing not found"}`,
		},
		{
			name:       "unavailable product",
			target:     "/api/product/soup/quote",
			body:       `{"quantity":1}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"code":409,"message":"product soup is unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFixture(t).do(http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestPlaceOrderAndGet(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/order", `{
		"merchantId": "m1",
		"lines": [
			{"productId": "margherita", "quantity": 2, "selections": {"size": ["large"], "cheese": ["cheddar", "swiss"]}},
			{"productId": "margherita", "quantity": 1, "selections": {"size": ["regular"]}, "instructions": null}
		]
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, f.orders.orders, 1)

	var id string
	for k := range f.orders.orders {
		id = k
	}
	assert.Contains(t, w.Body.String(), `"total":"99.50"`)
	assert.Contains(t, w.Body.String(), `"id":"`+id+`"`)

	got := f.do(http.MethodGet, "/api/order/"+id, "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.JSONEq(t, w.Body.String(), got.Body.String())

	missing := f.do(http.MethodGet, "/api/order/nope", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestPlaceOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no lines",
			body:       `{"lines":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "violations on several lines",
			body: `{"lines":[
				{"productId":"margherita","quantity":1,"selections":{"size":["large"]}},
				{"productId":"margherita","quantity":1},
				{"productId":"margherita","quantity":1,"selections":{"size":["large","jumbo"]}}
			]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody: `{"code":422,"message":"invalid selection","violations":[
				{"line":1,"kind":"constraint_violation","groupId":"size","reason":"below minimum"},
				{"line":2,"kind":"constraint_violation","groupId":"size","reason":"above maximum"}
			]}`,
		},
		{
			name:       "unavailable product on second line",
			body:       `{"lines":[{"productId":"margherita","quantity":1,"selections":{"size":["large"]}},{"productId":"soup","quantity":1}]}`,
			wantStatus: http.StatusConflict,
			wantBody:   `{"code":409,"message":"line 1: product soup is unavailable","line":1}`,
		},
		{
			name:       "foreign merchant",
			body:       `{"merchantId":"m2","lines":[{"productId":"margherita","quantity":1,"selections":{"size":["large"]}}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "quantity above cap",
			body:       `{"lines":[{"productId":"margherita","quantity":100}]}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, "/api/order", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			assert.Empty(t, f.orders.orders)
		})
	}
}

func TestPriceRange(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/product/margherita/price-range", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"min":"25.50","max":"46.00"}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/price-range?productId=soup&productId=missing&productId=margherita", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"productId":"soup","min":"8.00","max":"8.00"},
		{"productId":"margherita","min":"25.50","max":"46.00"}
	]`, w.Body.String())

	w = f.do(http.MethodGet, "/api/price-range", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalError(t *testing.T) {
	f := newFixture(t)
	f.products.err = errors.New("connection reset")

	w := f.do(http.MethodGet, "/api/product/margherita/price-range", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
}
