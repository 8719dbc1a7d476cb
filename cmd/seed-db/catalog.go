package main

import (
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/menu-engine/internal/domain/product"
	"github.com/xenking/menu-engine/internal/domain/snapshot"
)

// readCatalog loads a JSON product array from path. Files ending in .gz are
// decompressed on the fly.
func readCatalog(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return decodeCatalog(data)
}

// decodeCatalog parses and validates every product of a catalog document.
// Group and option ids are keys of their own tables, so they must be unique
// across the whole catalog and not only inside one product.
func decodeCatalog(data []byte) ([]product.Product, error) {
	var (
		products []product.Product
		seen     = map[string]string{}
	)
	claim := func(kind, id, owner string) error {
		key := kind + "/" + id
		if prev, ok := seen[key]; ok {
			return errors.Errorf("%s %s used by both %s and %s", kind, id, prev, owner)
		}
		seen[key] = owner
		return nil
	}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := decodeProduct(d, &p); err != nil {
			return errors.Wrapf(err, "product %d", len(products))
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := claim("product", p.ID, p.ID); err != nil {
			return err
		}
		for _, g := range p.Groups {
			if err := claim("group", g.ID, p.ID); err != nil {
				return err
			}
			for _, o := range g.Options {
				if err := claim("option", o.ID, p.ID); err != nil {
					return err
				}
			}
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder, p *product.Product) error {
	p.Available = true
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "merchantId":
			p.MerchantID, err = d.Str()
		case "name":
			p.Name, err = snapshot.DecodeText(d)
		case "description":
			p.Description, err = snapshot.DecodeText(d)
		case "basePrice":
			p.BasePrice, err = snapshot.DecodeMoney(d)
		case "discountPercent":
			p.DiscountPercent, err = optMoney(d)
		case "discountedPrice":
			p.DiscountedPrice, err = optMoney(d)
		case "isAvailable":
			p.Available, err = d.Bool()
		case "groups":
			err = d.Arr(func(d *jx.Decoder) error {
				var g product.OptionGroup
				if err := decodeGroup(d, &g); err != nil {
					return err
				}
				p.Groups = append(p.Groups, g)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		return nil
	})
}

func decodeGroup(d *jx.Decoder, g *product.OptionGroup) error {
	g.Available = true
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			g.ID, err = d.Str()
		case "name":
			g.Name, err = snapshot.DecodeText(d)
		case "type":
			var s string
			if s, err = d.Str(); err == nil {
				g.Type, err = product.ParseGroupType(s)
			}
		case "isRequired":
			g.Required, err = d.Bool()
		case "minSelections":
			g.MinSelections, err = d.Int()
		case "maxSelections":
			var n int
			if n, err = d.Int(); err == nil {
				g.MaxSelections = product.Bounded(n)
			}
		case "isAvailable":
			g.Available, err = d.Bool()
		case "sortOrder":
			g.SortOrder, err = d.Int()
		case "options":
			err = d.Arr(func(d *jx.Decoder) error {
				o := product.Option{GroupID: g.ID}
				if err := decodeOption(d, &o); err != nil {
					return err
				}
				g.Options = append(g.Options, o)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "group %s: %s", g.ID, key)
		}
		return nil
	})
}

func decodeOption(d *jx.Decoder, o *product.Option) error {
	o.Available = true
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "name":
			o.Name, err = snapshot.DecodeText(d)
		case "priceModifier":
			o.PriceModifier, err = snapshot.DecodeMoney(d)
		case "isAvailable":
			o.Available, err = d.Bool()
		case "sortOrder":
			o.SortOrder, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "option %s: %s", o.ID, key)
		}
		return nil
	})
}

func optMoney(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return decimal.Zero, d.Null()
	}
	return snapshot.DecodeMoney(d)
}
