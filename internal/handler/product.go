package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// maxRangeIDs bounds the bulk price-range query.
const maxRangeIDs = 100

// PriceRange returns the display price range of one product.
func (h *Handler) PriceRange(w http.ResponseWriter, r *http.Request) {
	rng, err := h.orders.PriceRange(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.FieldStart("min")
			encodeMoney(e, rng.Min)
			e.FieldStart("max")
			encodeMoney(e, rng.Max)
		})
	})
}

// PriceRanges returns the price ranges of every productId query value that
// exists, in query order.
func (h *Handler) PriceRanges(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["productId"]
	if len(ids) == 0 || len(ids) > maxRangeIDs {
		h.fail(w, r, errors.Wrapf(errBadRequest, "between 1 and %d productId values required", maxRangeIDs))
		return
	}

	ranges, err := h.orders.PriceRanges(r.Context(), ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, pr := range ranges {
				e.Obj(func(e *jx.Encoder) {
					e.FieldStart("productId")
					e.Str(pr.ProductID)
					e.FieldStart("min")
					encodeMoney(e, pr.Range.Min)
					e.FieldStart("max")
					encodeMoney(e, pr.Range.Max)
				})
			}
		})
	})
}
