package product

import (
	"cmp"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// GroupType enumerates the kinds of option groups. The type only matters to
// presentation; pricing treats every type identically.
type GroupType string

const (
	// GroupSize picks the portion size of a product.
	GroupSize GroupType = "size"
	// GroupAddon adds extra items on top of a product.
	GroupAddon GroupType = "addon"
	// GroupIngredient adds or removes ingredients.
	GroupIngredient GroupType = "ingredient"
	// GroupCustomization covers free-form preparation choices.
	GroupCustomization GroupType = "customization"
)

// ParseGroupType validates s against the known group types.
func ParseGroupType(s string) (GroupType, error) {
	switch t := GroupType(s); t {
	case GroupSize, GroupAddon, GroupIngredient, GroupCustomization:
		return t, nil
	default:
		return "", errors.Errorf("unsupported option group type: %q", s)
	}
}

// MaxSelections is the upper bound of an option group: either Bounded(k)
// with k > 0, or Unlimited. The zero value is Unlimited.
type MaxSelections struct {
	limit int
}

// Unlimited returns a bound that accepts any number of selections.
func Unlimited() MaxSelections { return MaxSelections{} }

// Bounded returns a bound of at most k selections. k must be positive;
// Bounded(0) is Unlimited, matching the stored "0 means unlimited" value.
func Bounded(k int) MaxSelections {
	if k <= 0 {
		return Unlimited()
	}
	return MaxSelections{limit: k}
}

// Limit returns the bound and true, or 0 and false when unlimited.
func (m MaxSelections) Limit() (int, bool) {
	return m.limit, m.limit > 0
}

// IsUnlimited reports whether the bound is Unlimited.
func (m MaxSelections) IsUnlimited() bool { return m.limit == 0 }

// Exceeded reports whether n selections are above the bound.
func (m MaxSelections) Exceeded(n int) bool {
	k, ok := m.Limit()
	return ok && n > k
}

// Int returns the stored representation, 0 for Unlimited.
func (m MaxSelections) Int() int { return m.limit }

// OptionGroup is a typed cluster of options with cardinality constraints.
type OptionGroup struct {
	ID            string
	ProductID     string
	Name          Text
	Type          GroupType
	Required      bool
	MinSelections int
	MaxSelections MaxSelections
	Available     bool
	SortOrder     int
	Options       []Option
}

// Validate checks the group invariants: a required group needs at least one
// selection, and a bounded maximum cannot be below the minimum.
func (g *OptionGroup) Validate() error {
	if _, err := ParseGroupType(string(g.Type)); err != nil {
		return errors.Wrapf(err, "group %s", g.ID)
	}
	if g.MinSelections < 0 {
		return errors.Errorf("group %s: negative minimum %d", g.ID, g.MinSelections)
	}
	if g.Required && g.MinSelections < 1 {
		return errors.Errorf("group %s: required group must have minimum of at least 1", g.ID)
	}
	if k, ok := g.MaxSelections.Limit(); ok && g.MinSelections > k {
		return errors.Errorf("group %s: minimum %d above maximum %d", g.ID, g.MinSelections, k)
	}
	return nil
}

// RequiredMinimum is the number of selections the group demands. Optional
// groups demand none; required groups demand at least one even if the
// stored minimum is zero.
func (g *OptionGroup) RequiredMinimum() int {
	if !g.Required {
		return 0
	}
	return max(g.MinSelections, 1)
}

// Option looks up an option of this group by id.
func (g *OptionGroup) Option(id string) (Option, bool) {
	for _, o := range g.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// AvailableModifiers returns the price modifiers of every available option.
func (g *OptionGroup) AvailableModifiers() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(g.Options))
	for _, o := range g.Options {
		if o.Available {
			out = append(out, o.PriceModifier)
		}
	}
	return out
}

// Option is one selectable choice within a group.
type Option struct {
	ID      string
	GroupID string
	Name    Text
	// PriceModifier is a signed delta; negative values lower the price.
	PriceModifier decimal.Decimal
	Available     bool
	SortOrder     int
}

// SortGroups orders groups by sort order, then by id.
func SortGroups(groups []OptionGroup) {
	slices.SortStableFunc(groups, func(a, b OptionGroup) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
}
