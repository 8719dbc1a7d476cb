// Package handler exposes the order service as a JSON-over-HTTP API.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/menu-engine/internal/domain/order"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Handler serves the menu API routes, delegating business logic to the
// order service.
type Handler struct {
	orders *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/product/{id}/price-range", h.PriceRange)
	mux.HandleFunc("POST /api/product/{id}/quote", h.Quote)
	mux.HandleFunc("GET /api/price-range", h.PriceRanges)
	mux.HandleFunc("POST /api/order", h.PlaceOrder)
	mux.HandleFunc("GET /api/order/{id}", h.GetOrder)
}

var errBadRequest = errors.New("invalid request body")

// readBody returns a decoder over the whole request body.
func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(errBadRequest, err.Error())
	}
	return jx.DecodeBytes(data), nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
