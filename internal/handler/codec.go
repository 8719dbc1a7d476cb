package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/menu-engine/internal/domain/order"
	"github.com/xenking/menu-engine/internal/domain/selection"
	"github.com/xenking/menu-engine/internal/domain/snapshot"
)

func decodePlaceOrder(d *jx.Decoder, req *order.PlaceOrderRequest) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "merchantId":
			return optStr(d, &req.MerchantID)
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.LineRequest
				if err := decodeLine(d, &line); err != nil {
					return errors.Wrapf(err, "line %d", len(req.Lines))
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	})
}

func decodeLine(d *jx.Decoder, line *order.LineRequest) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			line.ProductID, err = d.Str()
		case "quantity":
			line.Quantity, err = d.Int()
		case "selections":
			line.Selections, err = decodeSelections(d)
		case "instructions":
			err = optStr(d, &line.Instructions)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		return nil
	})
}

// decodeSelections reads {"groupId": ["optionId", ...]}. Submission order
// inside each group is kept.
func decodeSelections(d *jx.Decoder) (selection.Selection, error) {
	sel := selection.Selection{}
	if d.Next() == jx.Null {
		return sel, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, groupID string) error {
		ids := []string{}
		if err := d.Arr(func(d *jx.Decoder) error {
			id, err := d.Str()
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		}); err != nil {
			return errors.Wrapf(err, "group %s", groupID)
		}
		sel[groupID] = append(sel[groupID], ids...)
		return nil
	})
	return sel, err
}

func optStr(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	*dst = s
	return err
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.StringFixed(2))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("id")
		e.Str(o.ID)
		e.FieldStart("merchantId")
		e.Str(o.MerchantID)
		e.FieldStart("total")
		encodeMoney(e, o.Total)
		e.FieldStart("createdAt")
		e.Str(o.CreatedAt.Format(time.RFC3339))
		e.FieldStart("lines")
		e.Arr(func(e *jx.Encoder) {
			for _, l := range o.Lines {
				e.Obj(func(e *jx.Encoder) {
					e.FieldStart("id")
					e.Str(l.ID)
					e.FieldStart("line")
					encodeLine(e, l.Line)
				})
			}
		})
	})
}

func encodeLine(e *jx.Encoder, l snapshot.OrderLine) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("product")
		e.Obj(func(e *jx.Encoder) {
			e.FieldStart("id")
			e.Str(l.Product.ID)
			e.FieldStart("name")
			snapshot.EncodeText(e, l.Product.Name)
			e.FieldStart("basePrice")
			encodeMoney(e, l.Product.BasePrice)
			e.FieldStart("effectivePrice")
			encodeMoney(e, l.Product.EffectivePrice)
		})
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("groups")
		e.Arr(func(e *jx.Encoder) {
			for _, g := range l.Groups {
				encodeGroup(e, g)
			}
		})
		e.FieldStart("unitPrice")
		encodeMoney(e, l.UnitPrice)
		e.FieldStart("totalPrice")
		encodeMoney(e, l.TotalPrice)
		if l.Instructions != "" {
			e.FieldStart("instructions")
			e.Str(l.Instructions)
		}
	})
}

func encodeGroup(e *jx.Encoder, g snapshot.Group) {
	e.Obj(func(e *jx.Encoder) {
		e.FieldStart("id")
		e.Str(g.ID)
		e.FieldStart("name")
		snapshot.EncodeText(e, g.Name)
		e.FieldStart("type")
		e.Str(string(g.Type))
		e.FieldStart("options")
		e.Arr(func(e *jx.Encoder) {
			for _, o := range g.Options {
				e.Obj(func(e *jx.Encoder) {
					e.FieldStart("id")
					e.Str(o.ID)
					e.FieldStart("name")
					snapshot.EncodeText(e, o.Name)
					e.FieldStart("priceModifier")
					encodeMoney(e, o.PriceModifier)
				})
			}
		})
	})
}

func encodeViolations(e *jx.Encoder, line int, vs selection.Violations) {
	for _, v := range vs {
		e.Obj(func(e *jx.Encoder) {
			if line >= 0 {
				e.FieldStart("line")
				e.Int(line)
			}
			e.FieldStart("kind")
			e.Str(string(v.Kind))
			e.FieldStart("groupId")
			e.Str(v.GroupID)
			if v.OptionID != "" {
				e.FieldStart("optionId")
				e.Str(v.OptionID)
			}
			e.FieldStart("reason")
			e.Str(v.Reason)
		})
	}
}
