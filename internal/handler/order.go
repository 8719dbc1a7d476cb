package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/menu-engine/internal/domain/order"
)

// Quote prices one customized product without placing an order.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req order.LineRequest
	if err := decodeLine(d, &req); err != nil {
		h.fail(w, r, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	// The path decides which product is quoted.
	req.ProductID = r.PathValue("id")

	result, err := h.orders.Quote(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.FieldStart("unitPrice")
			encodeMoney(e, result.UnitPrice)
			e.FieldStart("totalPrice")
			encodeMoney(e, result.TotalPrice)
			e.FieldStart("snapshot")
			encodeLine(e, result.Snapshot)
		})
	})
}

// PlaceOrder validates, prices and stores an order of one or more lines.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req order.PlaceOrderRequest
	if err := decodePlaceOrder(d, &req); err != nil {
		h.fail(w, r, errors.Wrap(errBadRequest, err.Error()))
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder returns a stored order with its line snapshots.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
