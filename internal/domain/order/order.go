package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/menu-engine/internal/domain/snapshot"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order represents a placed customer order made of snapshotted lines.
type Order struct {
	ID         string
	MerchantID string
	Lines      []Line
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// Line is a single order line with its identifier.
type Line struct {
	ID   string
	Line snapshot.OrderLine
}

// Repository defines persistence operations for orders. Create writes the
// order and its lines atomically.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
