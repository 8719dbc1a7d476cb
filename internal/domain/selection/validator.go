// Package selection checks customer-submitted option selections against the
// cardinality and availability rules of a product's option groups.
package selection

import (
	"slices"

	"github.com/xenking/menu-engine/internal/domain/product"
)

// Selection maps a group id to the option ids submitted under it, in
// submission order.
type Selection map[string][]string

// Group is one group of a validated selection with its chosen options,
// copied from the catalog read.
type Group struct {
	Group   product.OptionGroup
	Options []product.Option
}

// Validated is a selection known to satisfy every group's constraints. Only
// Validate produces non-empty values; groups without submissions are omitted.
type Validated struct {
	groups []Group
}

// Groups returns the selected groups in catalog sort order.
func (v Validated) Groups() []Group {
	return slices.Clone(v.groups)
}

// Options returns every chosen option across all groups.
func (v Validated) Options() []product.Option {
	var out []product.Option
	for _, g := range v.groups {
		out = append(out, g.Options...)
	}
	return out
}

// Validate checks sel against groups. Every group is checked even after a
// problem is found, so the returned Violations is always the complete batch.
//
// Selections submitted under a group id that is not in groups are reported
// as invalid option references, one per submitted option.
func Validate(groups []product.OptionGroup, sel Selection) (Validated, error) {
	ordered := slices.Clone(groups)
	product.SortGroups(ordered)

	var (
		violations Violations
		chosen     []Group
		known      = make(map[string]struct{}, len(ordered))
	)
	for i := range ordered {
		g := &ordered[i]
		known[g.ID] = struct{}{}

		opts, vs := checkGroup(g, sel[g.ID])
		violations = append(violations, vs...)
		if len(vs) == 0 && len(opts) > 0 {
			chosen = append(chosen, Group{Group: *g, Options: opts})
		}
	}

	var unknown []string
	for id := range sel {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	slices.Sort(unknown)
	for _, id := range unknown {
		for _, optID := range sel[id] {
			violations = append(violations, invalidOption(id, optID, ReasonUnknownOption))
		}
	}

	if len(violations) > 0 {
		return Validated{}, violations
	}
	return Validated{groups: chosen}, nil
}

func checkGroup(g *product.OptionGroup, submitted []string) ([]product.Option, Violations) {
	var (
		vs   Violations
		opts = make([]product.Option, 0, len(submitted))
		seen = make(map[string]struct{}, len(submitted))
	)
	for _, id := range submitted {
		if _, dup := seen[id]; dup {
			vs = append(vs, invalidOption(g.ID, id, ReasonDuplicateOption))
			continue
		}
		seen[id] = struct{}{}

		o, ok := g.Option(id)
		switch {
		case !ok:
			vs = append(vs, invalidOption(g.ID, id, ReasonUnknownOption))
		case !o.Available:
			vs = append(vs, invalidOption(g.ID, id, ReasonUnavailable))
		default:
			opts = append(opts, o)
		}
	}

	n := len(submitted)
	if n < g.RequiredMinimum() {
		vs = append(vs, constraint(g.ID, ReasonBelowMinimum))
	}
	if g.MaxSelections.Exceeded(n) {
		vs = append(vs, constraint(g.ID, ReasonAboveMaximum))
	}
	return opts, vs
}
