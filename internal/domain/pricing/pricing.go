// Package pricing computes effective, unit and total prices of customized
// products, and a display price range when no selection is known.
//
// Every monetary result is rounded half-up to two decimal places, and unit
// prices and range bounds never go below zero even when option modifiers
// are negative.
package pricing

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/menu-engine/internal/domain/product"
	"github.com/xenking/menu-engine/internal/domain/selection"
)

// ErrInvalidQuantity is returned for a zero or negative quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

const places = 2

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Range is a display-only price estimate for a product without a selection.
type Range struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// EffectivePrice returns the product's price after its catalog-level
// discount. A positive precomputed discounted price wins over a percentage.
func EffectivePrice(p *product.Product) decimal.Decimal {
	switch {
	case p.DiscountedPrice.IsPositive():
		return money(p.DiscountedPrice)
	case p.DiscountPercent.IsPositive():
		factor := hundred.Sub(p.DiscountPercent).Div(hundred)
		return money(p.BasePrice.Mul(factor))
	default:
		return money(p.BasePrice)
	}
}

// UnitPrice is the effective price plus every selected modifier.
func UnitPrice(p *product.Product, sel selection.Validated) decimal.Decimal {
	price := EffectivePrice(p)
	for _, o := range sel.Options() {
		price = price.Add(o.PriceModifier)
	}
	return money(price)
}

// TotalPrice multiplies a unit price by a positive quantity.
func TotalPrice(unit decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return zero, ErrInvalidQuantity
	}
	return money(unit.Mul(decimal.NewFromInt(int64(quantity)))), nil
}

// PriceRange estimates the cheapest and most expensive configuration of p.
//
// The minimum adds, for each required group, its cheapest available options
// up to the group's minimum. The maximum adds, for every group, its most
// expensive available options up to the group's bound, or all of them when
// the group is unlimited.
func PriceRange(p *product.Product) Range {
	base := EffectivePrice(p)
	lo, hi := base, base

	for _, g := range p.VisibleGroups() {
		mods := g.AvailableModifiers()
		slices.SortFunc(mods, decimal.Decimal.Cmp)

		if k := g.RequiredMinimum(); k > 0 {
			lo = lo.Add(sum(mods[:min(k, len(mods))]))
		}

		k := len(mods)
		if limit, ok := g.MaxSelections.Limit(); ok {
			k = min(limit, k)
		}
		hi = hi.Add(sum(mods[len(mods)-k:]))
	}

	return Range{Min: money(lo), Max: money(hi)}
}

func sum(ds []decimal.Decimal) decimal.Decimal {
	total := zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}

// money rounds to cents and clamps negative amounts to zero.
func money(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero.Round(places)
	}
	return d.Round(places)
}
