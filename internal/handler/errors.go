package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/menu-engine/internal/domain/order"
	"github.com/xenking/menu-engine/internal/domain/pricing"
	"github.com/xenking/menu-engine/internal/domain/selection"
)

// fail maps a domain error to a JSON error response. Unknown errors are
// logged and reported as 500 without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		violations  selection.Violations
		orderErrs   *order.ViolationsError
		lineErr     *order.LineError
		notFound    *order.ProductNotFoundError
		unavailable *order.ProductUnavailableError
		mismatch    *order.MerchantMismatchError
	)

	line := -1
	if errors.As(err, &lineErr) {
		line = lineErr.Index
	}

	switch {
	case errors.As(err, &orderErrs):
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			errorBody(e, http.StatusUnprocessableEntity, "invalid selection", line, func(e *jx.Encoder) {
				for _, l := range orderErrs.Lines {
					encodeViolations(e, l.Index, l.Violations)
				}
			})
		})
	case errors.As(err, &violations):
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			errorBody(e, http.StatusUnprocessableEntity, "invalid selection", line, func(e *jx.Encoder) {
				encodeViolations(e, -1, violations)
			})
		})
	case errors.Is(err, errBadRequest),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrTooManyLines),
		errors.Is(err, order.ErrInstructionsTooLong):
		writeError(w, http.StatusBadRequest, err.Error(), line)
	case errors.As(err, &notFound), errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), line)
	case errors.As(err, &unavailable):
		writeError(w, http.StatusConflict, err.Error(), line)
	case errors.As(err, &mismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), line)
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error", -1)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, line int) {
	writeJSON(w, status, func(e *jx.Encoder) {
		errorBody(e, status, msg, line, nil)
	})
}

// errorBody writes {"code", "message", "line"?, "violations"?}.
func errorBody(e *jx.Encoder, status int, msg string, line int, violations func(e *jx.Encoder)) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		if line >= 0 {
			e.FieldStart("line")
			e.Int(line)
		}
		if violations != nil {
			e.FieldStart("violations")
			e.Arr(violations)
		}
	})
}
