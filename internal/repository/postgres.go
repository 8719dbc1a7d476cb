package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/jx"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/menu-engine/db"
	"github.com/xenking/menu-engine/internal/domain/product"
	"github.com/xenking/menu-engine/internal/domain/snapshot"
)

// readTx is used for every multi-statement read so that all rows come from
// the same database snapshot.
var readTx = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns. A positive maxConns overrides the pool size from the
// connection URL.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func encodeText(t product.Text) []byte {
	var e jx.Encoder
	snapshot.EncodeText(&e, t)
	return e.Bytes()
}

func decodeText(data []byte) (product.Text, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return snapshot.DecodeText(jx.DecodeBytes(data))
}
