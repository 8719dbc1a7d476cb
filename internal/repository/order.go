package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/menu-engine/internal/domain/order"
	"github.com/xenking/menu-engine/internal/domain/snapshot"
)

const (
	createOrderSQL = `INSERT INTO orders (id, merchant_id, total, created_at)
		VALUES ($1, $2, $3, $4)`

	createOrderLineSQL = `INSERT INTO order_lines
		(id, order_id, position, product_id, product_snapshot, customizations, quantity, unit_price, total_price, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getOrderSQL = `SELECT id, merchant_id, total, created_at FROM orders WHERE id = $1`

	getOrderLinesSQL = `SELECT id, product_id, product_snapshot, customizations, quantity, unit_price, total_price, instructions
		FROM order_lines WHERE order_id = $1 ORDER BY position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and its line snapshots in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(createOrderSQL, o.ID, o.MerchantID, o.Total, o.CreatedAt)
		for i, l := range o.Lines {
			rec := l.Line.Record()
			batch.Queue(createOrderLineSQL,
				l.ID, o.ID, i, rec.ProductID, rec.Product, rec.Customizations,
				rec.Quantity, rec.UnitPrice, rec.TotalPrice, rec.Instructions,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its lines decoded from their snapshots.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var (
		o       order.Order
		records []lineRecord
	)
	err := pgx.BeginTxFunc(ctx, r.pool, readTx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, getOrderSQL, id).Scan(&o.ID, &o.MerchantID, &o.Total, &o.CreatedAt); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, getOrderLinesSQL, id)
		if err != nil {
			return err
		}
		records, err = pgx.CollectRows(rows, scanLineRecord)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o.Lines = make([]order.Line, len(records))
	for i, rec := range records {
		line, err := rec.Line()
		if err != nil {
			return nil, fmt.Errorf("order %q line %s: %w", id, rec.id, err)
		}
		o.Lines[i] = order.Line{ID: rec.id, Line: line}
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

type lineRecord struct {
	snapshot.Record
	id string
}

func scanLineRecord(row pgx.CollectableRow) (lineRecord, error) {
	var rec lineRecord
	err := row.Scan(
		&rec.id, &rec.ProductID, &rec.Product, &rec.Customizations,
		&rec.Quantity, &rec.UnitPrice, &rec.TotalPrice, &rec.Instructions,
	)
	return rec, err
}
