package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/menu-engine/internal/domain/pricing"
	"github.com/xenking/menu-engine/internal/domain/selection"
)

// Sentinel errors for order input validation.
var (
	ErrEmptyLines          = errors.New("lines required")
	ErrTooManyLines        = errors.New("too many lines")
	ErrInstructionsTooLong = errors.New("instructions too long")
)

// ProductUnavailableError indicates a product that exists but cannot be
// ordered right now.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line with a quantity outside the
// accepted range.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}

func (e *InvalidQuantityError) Unwrap() error { return pricing.ErrInvalidQuantity }

// MerchantMismatchError indicates a line whose product belongs to another
// merchant than the order.
type MerchantMismatchError struct {
	ProductID  string
	MerchantID string
}

func (e *MerchantMismatchError) Error() string {
	return fmt.Sprintf("product %s does not belong to merchant %s", e.ProductID, e.MerchantID)
}

// LineError attaches the index of the offending line to a fatal error.
type LineError struct {
	Index int
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Index, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// LineViolations is one line's batch of selection violations.
type LineViolations struct {
	Index      int
	Violations selection.Violations
}

// ViolationsError collects the selection violations of every line of an
// order request.
type ViolationsError struct {
	Lines []LineViolations
}

func (e *ViolationsError) Error() string {
	parts := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		parts[i] = fmt.Sprintf("line %d: %s", l.Index, l.Violations)
	}
	return strings.Join(parts, "; ")
}
