package product

import (
	"context"
	"maps"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Text is a localized display string keyed by locale. The engine never
// interprets it; it is only copied into snapshots.
type Text map[string]string

// Clone returns an independent copy of t.
func (t Text) Clone() Text {
	if t == nil {
		return nil
	}
	return maps.Clone(t)
}

// Product represents a catalog item with its configurable option groups as
// they existed at read time.
type Product struct {
	ID          string
	MerchantID  string
	Name        Text
	Description Text
	BasePrice   decimal.Decimal
	// DiscountPercent is a catalog-level percentage discount (0..100).
	DiscountPercent decimal.Decimal
	// DiscountedPrice, when positive, is authoritative over DiscountPercent.
	DiscountedPrice decimal.Decimal
	Available       bool
	Groups          []OptionGroup
}

// VisibleGroups returns the groups flagged available for customer-facing
// use, in sort order. Unavailable groups are invisible to validation and
// pricing.
func (p *Product) VisibleGroups() []OptionGroup {
	out := make([]OptionGroup, 0, len(p.Groups))
	for _, g := range p.Groups {
		if g.Available {
			out = append(out, g)
		}
	}
	SortGroups(out)
	return out
}

// Validate checks the product's pricing fields and the invariants of every
// option group.
func (p *Product) Validate() error {
	if p.BasePrice.IsNegative() {
		return errors.Errorf("product %s: base price is negative", p.ID)
	}
	if p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.Errorf("product %s: discount percent %s out of range", p.ID, p.DiscountPercent)
	}
	for i := range p.Groups {
		if err := p.Groups[i].Validate(); err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
	}
	return nil
}

// Repository is the catalog snapshot reader. A single call returns a product
// together with all of its option groups and options, read consistently.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByIDs reads all requested products in one consistent read. Missing
	// ids are omitted from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
