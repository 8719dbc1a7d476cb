// Package snapshot captures an order line by value at order time so that it
// stays accurate after the catalog changes.
package snapshot

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/menu-engine/internal/domain/product"
	"github.com/xenking/menu-engine/internal/domain/selection"
)

// Option is a chosen option as it was at order time.
type Option struct {
	ID            string
	Name          product.Text
	PriceModifier decimal.Decimal
}

// Group is a group with a non-empty selection as it was at order time.
type Group struct {
	ID      string
	Name    product.Text
	Type    product.GroupType
	Options []Option
}

// Product holds the product fields copied at order time.
type Product struct {
	ID             string
	Name           product.Text
	BasePrice      decimal.Decimal
	EffectivePrice decimal.Decimal
}

// OrderLine is the immutable record of one ordered product. It shares no
// memory with the catalog values it was built from.
type OrderLine struct {
	Product      Product
	Quantity     int
	Groups       []Group
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	Instructions string
}

// Line carries the computed inputs of Build.
type Line struct {
	Quantity       int
	EffectivePrice decimal.Decimal
	UnitPrice      decimal.Decimal
	TotalPrice     decimal.Decimal
	Instructions   string
}

// Build copies the product and the chosen groups and options into a new
// OrderLine. It has no side effects.
func Build(p *product.Product, sel selection.Validated, line Line) OrderLine {
	selected := sel.Groups()
	groups := make([]Group, 0, len(selected))
	for _, sg := range selected {
		opts := make([]Option, len(sg.Options))
		for i, o := range sg.Options {
			opts[i] = Option{
				ID:            o.ID,
				Name:          o.Name.Clone(),
				PriceModifier: o.PriceModifier,
			}
		}
		groups = append(groups, Group{
			ID:      sg.Group.ID,
			Name:    sg.Group.Name.Clone(),
			Type:    sg.Group.Type,
			Options: opts,
		})
	}

	return OrderLine{
		Product: Product{
			ID:             p.ID,
			Name:           p.Name.Clone(),
			BasePrice:      p.BasePrice,
			EffectivePrice: line.EffectivePrice,
		},
		Quantity:     line.Quantity,
		Groups:       groups,
		UnitPrice:    line.UnitPrice,
		TotalPrice:   line.TotalPrice,
		Instructions: line.Instructions,
	}
}
