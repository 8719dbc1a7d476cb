package snapshot

import (
	"cmp"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/menu-engine/internal/domain/product"
)

const places = 2

// Record is the persisted shape of an order line: a product blob, a
// customization blob keyed by group id, and the computed amounts.
type Record struct {
	ProductID      string
	Product        []byte
	Customizations []byte
	UnitPrice      decimal.Decimal
	TotalPrice     decimal.Decimal
	Quantity       int
	Instructions   string
}

// Record serializes the line into its persisted shape.
func (l OrderLine) Record() Record {
	return Record{
		ProductID:      l.Product.ID,
		Product:        encodeProduct(l.Product),
		Customizations: encodeGroups(l.Groups),
		UnitPrice:      l.UnitPrice,
		TotalPrice:     l.TotalPrice,
		Quantity:       l.Quantity,
		Instructions:   l.Instructions,
	}
}

// Line decodes a persisted record back into an OrderLine. Groups keep the
// order they were built in even if the store reorders object keys.
func (r Record) Line() (OrderLine, error) {
	p, err := decodeProduct(r.Product)
	if err != nil {
		return OrderLine{}, errors.Wrap(err, "decode product blob")
	}
	groups, err := decodeGroups(r.Customizations)
	if err != nil {
		return OrderLine{}, errors.Wrap(err, "decode customization blob")
	}
	return OrderLine{
		Product:      p,
		Quantity:     r.Quantity,
		Groups:       groups,
		UnitPrice:    r.UnitPrice,
		TotalPrice:   r.TotalPrice,
		Instructions: r.Instructions,
	}, nil
}

func encodeProduct(p Product) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		EncodeText(e, p.Name)
		e.FieldStart("base_price")
		e.Str(p.BasePrice.StringFixed(places))
		e.FieldStart("effective_price")
		e.Str(p.EffectivePrice.StringFixed(places))
	})
	return e.Bytes()
}

func encodeGroups(groups []Group) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		for i, g := range groups {
			e.FieldStart(g.ID)
			e.Obj(func(e *jx.Encoder) {
				e.FieldStart("position")
				e.Int(i)
				e.FieldStart("name")
				EncodeText(e, g.Name)
				e.FieldStart("type")
				e.Str(string(g.Type))
				e.FieldStart("options")
				e.Arr(func(e *jx.Encoder) {
					for _, o := range g.Options {
						encodeOption(e, o)
					}
				})
			})
		}
	})
	return e.Bytes()
}

func encodeOption(e *jx.Encoder, o Option) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("id")
		e.Str(o.ID)
		e.FieldStart("name")
		EncodeText(e, o.Name)
		e.FieldStart("price_modifier")
		e.Str(o.PriceModifier.StringFixed(places))
	})
}

// EncodeText writes a localized text as a JSON object with sorted keys.
func EncodeText(e *jx.Encoder, t product.Text) {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	e.Obj(func(e *jx.Encoder) {
		for _, k := range keys {
			e.FieldStart(k)
			e.Str(t[k])
		}
	})
}

// DecodeText reads a JSON object of locale to string. null decodes to nil.
func DecodeText(d *jx.Decoder) (product.Text, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	t := product.Text{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		if err != nil {
			return errors.Wrapf(err, "locale %q", key)
		}
		t[key] = v
		return nil
	})
	return t, err
}

// DecodeMoney reads a decimal encoded either as a string or a JSON number.
func DecodeMoney(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for money value", d.Next())
	}
}

func decodeProduct(data []byte) (Product, error) {
	var p Product
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = DecodeText(d)
		case "base_price":
			p.BasePrice, err = DecodeMoney(d)
		case "effective_price":
			p.EffectivePrice, err = DecodeMoney(d)
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	return p, err
}

func decodeGroups(data []byte) ([]Group, error) {
	type positioned struct {
		Group
		position int
	}
	var groups []positioned
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, groupID string) error {
		g := positioned{Group: Group{ID: groupID}}
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "position":
				g.position, err = d.Int()
			case "name":
				g.Name, err = DecodeText(d)
			case "type":
				var s string
				if s, err = d.Str(); err == nil {
					g.Type, err = product.ParseGroupType(s)
				}
			case "options":
				err = d.Arr(func(d *jx.Decoder) error {
					o, err := decodeOption(d)
					if err != nil {
						return err
					}
					g.Options = append(g.Options, o)
					return nil
				})
			default:
				err = d.Skip()
			}
			return fieldErr(key, err)
		}); err != nil {
			return errors.Wrapf(err, "group %s", groupID)
		}
		groups = append(groups, g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(groups, func(a, b positioned) int { return cmp.Compare(a.position, b.position) })
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g.Group
	}
	return out, nil
}

func decodeOption(d *jx.Decoder) (Option, error) {
	var o Option
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "name":
			o.Name, err = DecodeText(d)
		case "price_modifier":
			o.PriceModifier, err = DecodeMoney(d)
		default:
			err = d.Skip()
		}
		return fieldErr(key, err)
	})
	return o, err
}

func fieldErr(key string, err error) error {
	if err != nil {
		return errors.Wrapf(err, "field %q", key)
	}
	return nil
}
