package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/menu-engine/internal/domain/product"
)

const (
	getProductsByIDsSQL = `SELECT id, merchant_id, name, description, base_price, discount_percent, discounted_price, is_available
		FROM products WHERE id = ANY($1) ORDER BY id`

	getGroupsByProductIDsSQL = `SELECT id, product_id, name, type, is_required, min_selections, max_selections, is_available, sort_order
		FROM option_groups WHERE product_id = ANY($1) ORDER BY product_id, sort_order, id`

	getOptionsByProductIDsSQL = `SELECT o.id, o.group_id, o.name, o.price_modifier, o.is_available, o.sort_order
		FROM options o JOIN option_groups g ON g.id = o.group_id
		WHERE g.product_id = ANY($1) ORDER BY o.group_id, o.sort_order, o.id`

	upsertProductSQL = `INSERT INTO products (id, merchant_id, name, description, base_price, discount_percent, discounted_price, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			merchant_id = EXCLUDED.merchant_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			base_price = EXCLUDED.base_price,
			discount_percent = EXCLUDED.discount_percent,
			discounted_price = EXCLUDED.discounted_price,
			is_available = EXCLUDED.is_available,
			updated_at = now()`

	deleteGroupsSQL = `DELETE FROM option_groups WHERE product_id = $1`

	insertGroupSQL = `INSERT INTO option_groups (id, product_id, name, type, is_required, min_selections, max_selections, is_available, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertOptionSQL = `INSERT INTO options (id, group_id, name, price_modifier, is_available, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a single product with all of its groups and options.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	products, err := r.GetByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, product.ErrNotFound
	}
	return &products[0], nil
}

// GetByIDs returns the products matching any of the given IDs. Products,
// groups and options are read inside one repeatable-read transaction.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	var (
		products []product.Product
		groups   []product.OptionGroup
		options  []product.Option
	)
	err := pgx.BeginTxFunc(ctx, r.pool, readTx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, getProductsByIDsSQL, ids)
		if err != nil {
			return fmt.Errorf("querying products: %w", err)
		}
		if products, err = pgx.CollectRows(rows, scanProduct); err != nil {
			return fmt.Errorf("scanning products: %w", err)
		}
		if len(products) == 0 {
			return nil
		}

		rows, err = tx.Query(ctx, getGroupsByProductIDsSQL, ids)
		if err != nil {
			return fmt.Errorf("querying option groups: %w", err)
		}
		if groups, err = pgx.CollectRows(rows, scanGroup); err != nil {
			return fmt.Errorf("scanning option groups: %w", err)
		}

		rows, err = tx.Query(ctx, getOptionsByProductIDsSQL, ids)
		if err != nil {
			return fmt.Errorf("querying options: %w", err)
		}
		if options, err = pgx.CollectRows(rows, scanOption); err != nil {
			return fmt.Errorf("scanning options: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}

	return assemble(products, groups, options), nil
}

// Upsert writes a product and replaces its option groups and options in one
// transaction.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(upsertProductSQL,
			p.ID, p.MerchantID, encodeText(p.Name), encodeText(p.Description),
			p.BasePrice, p.DiscountPercent, p.DiscountedPrice, p.Available,
		)
		batch.Queue(deleteGroupsSQL, p.ID)
		for _, g := range p.Groups {
			batch.Queue(insertGroupSQL,
				g.ID, p.ID, encodeText(g.Name), string(g.Type), g.Required,
				g.MinSelections, g.MaxSelections.Int(), g.Available, g.SortOrder,
			)
			for _, o := range g.Options {
				batch.Queue(insertOptionSQL,
					o.ID, g.ID, encodeText(o.Name), o.PriceModifier, o.Available, o.SortOrder,
				)
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func assemble(products []product.Product, groups []product.OptionGroup, options []product.Option) []product.Product {
	optionsByGroup := make(map[string][]product.Option, len(groups))
	for _, o := range options {
		optionsByGroup[o.GroupID] = append(optionsByGroup[o.GroupID], o)
	}

	byProduct := make(map[string][]product.OptionGroup, len(products))
	for _, g := range groups {
		g.Options = optionsByGroup[g.ID]
		byProduct[g.ProductID] = append(byProduct[g.ProductID], g)
	}

	for i := range products {
		products[i].Groups = byProduct[products[i].ID]
	}
	return products
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p          product.Product
		name, desc []byte
	)
	if err := row.Scan(
		&p.ID, &p.MerchantID, &name, &desc,
		&p.BasePrice, &p.DiscountPercent, &p.DiscountedPrice, &p.Available,
	); err != nil {
		return p, err
	}

	var err error
	if p.Name, err = decodeText(name); err != nil {
		return p, fmt.Errorf("product %q name: %w", p.ID, err)
	}
	if p.Description, err = decodeText(desc); err != nil {
		return p, fmt.Errorf("product %q description: %w", p.ID, err)
	}
	return p, nil
}

func scanGroup(row pgx.CollectableRow) (product.OptionGroup, error) {
	var (
		g        product.OptionGroup
		name     []byte
		typ      string
		maxCount int
	)
	if err := row.Scan(
		&g.ID, &g.ProductID, &name, &typ, &g.Required,
		&g.MinSelections, &maxCount, &g.Available, &g.SortOrder,
	); err != nil {
		return g, err
	}

	var err error
	if g.Type, err = product.ParseGroupType(typ); err != nil {
		return g, fmt.Errorf("group %q: %w", g.ID, err)
	}
	if g.Name, err = decodeText(name); err != nil {
		return g, fmt.Errorf("group %q name: %w", g.ID, err)
	}
	g.MaxSelections = product.Bounded(maxCount)
	return g, nil
}

func scanOption(row pgx.CollectableRow) (product.Option, error) {
	var (
		o    product.Option
		name []byte
	)
	if err := row.Scan(&o.ID, &o.GroupID, &name, &o.PriceModifier, &o.Available, &o.SortOrder); err != nil {
		return o, err
	}

	var err error
	if o.Name, err = decodeText(name); err != nil {
		return o, fmt.Errorf("option %q name: %w", o.ID, err)
	}
	return o, nil
}
