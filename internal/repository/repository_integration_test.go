//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/menu-engine/internal/domain/order"
	"github.com/xenking/menu-engine/internal/domain/product"
	"github.com/xenking/menu-engine/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "menu",
				"POSTGRES_PASSWORD": "menu",
				"POSTGRES_DB":       "menu",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container port: %v\n", err)
		return 1
	}

	url := fmt.Sprintf("postgres://menu:menu@%s:%s/menu?sslmode=disable", host, port.Port())
	pool, err = repository.NewPool(ctx, url, 4)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}

	return m.Run()
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pizza(id string) *product.Product {
	return &product.Product{
		ID:              id,
		MerchantID:      "m1",
		Name:            product.Text{"en": "Margherita", "ar": "مارغريتا"},
		BasePrice:       d("25.50"),
		DiscountPercent: d("10"),
		Available:       true,
		Groups: []product.OptionGroup{
			{
				ID:            id + "-cheese",
				Name:          product.Text{"en": "Cheese"},
				Type:          product.GroupAddon,
				MaxSelections: product.Unlimited(),
				Available:     true,
				SortOrder:     1,
				Options: []product.Option{
					{ID: id + "-cheddar", PriceModifier: d("3.00"), Available: true},
					{ID: id + "-vegan", PriceModifier: d("-1.25"), Available: false, SortOrder: 1},
				},
			},
			{
				ID:            id + "-size",
				Name:          product.Text{"en": "Size"},
				Type:          product.GroupSize,
				Required:      true,
				MinSelections: 1,
				MaxSelections: product.Bounded(1),
				Available:     true,
				Options: []product.Option{
					{ID: id + "-regular", PriceModifier: d("0"), Available: true},
					{ID: id + "-large", PriceModifier: d("5.00"), Available: true, SortOrder: 1},
				},
			},
		},
	}
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProductRepository(pool)

	require.NoError(t, repo.Upsert(ctx, pizza("p1")))
	require.NoError(t, repo.Upsert(ctx, pizza("p2")))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MerchantID)
	assert.Equal(t, product.Text{"en": "Margherita", "ar": "مارغريتا"}, got.Name)
	assert.True(t, got.BasePrice.Equal(d("25.50")))
	assert.True(t, got.DiscountPercent.Equal(d("10")))

	require.Len(t, got.Groups, 2)
	size, cheese := got.Groups[0], got.Groups[1]
	assert.Equal(t, "p1-size", size.ID)
	assert.True(t, size.Required)
	assert.Equal(t, product.Bounded(1), size.MaxSelections)
	assert.Equal(t, "p1-cheese", cheese.ID)
	assert.True(t, cheese.MaxSelections.IsUnlimited())
	require.Len(t, cheese.Options, 2)
	assert.True(t, cheese.Options[1].PriceModifier.Equal(d("-1.25")))
	assert.False(t, cheese.Options[1].Available)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrNotFound)

	many, err := repo.GetByIDs(ctx, []string{"p2", "missing", "p1"})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Len(t, many[1].Groups, 2)
}

func TestProductRepository_UpsertReplacesGroups(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProductRepository(pool)

	p := pizza("p3")
	require.NoError(t, repo.Upsert(ctx, p))

	p.Groups = p.Groups[1:]
	p.Available = false
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.GetByID(ctx, "p3")
	require.NoError(t, err)
	assert.False(t, got.Available)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "p3-size", got.Groups[0].ID)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	products := repository.NewProductRepository(pool)
	require.NoError(t, products.Upsert(ctx, pizza("p4")))

	svc, err := order.NewService(products, repository.NewOrderRepository(pool), order.Options{
		Now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	placed, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		MerchantID: "m1",
		Lines: []order.LineRequest{
			{ProductID: "p4", Quantity: 2, Selections: map[string][]string{"p4-size": {"p4-large"}, "p4-cheese": {"p4-cheddar"}}},
			{ProductID: "p4", Quantity: 1, Selections: map[string][]string{"p4-size": {"p4-regular"}}, Instructions: "no basil"},
		},
	})
	require.NoError(t, err)

	// Catalog changes after ordering must not reach the stored order.
	changed := pizza("p4")
	changed.BasePrice = d("99.00")
	changed.Name = product.Text{"en": "Renamed"}
	require.NoError(t, products.Upsert(ctx, changed))

	got, err := svc.GetOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
	assert.Equal(t, "m1", got.MerchantID)
	assert.True(t, got.Total.Equal(placed.Total), "total %s", got.Total)
	assert.Equal(t, placed.CreatedAt, got.CreatedAt)

	require.Len(t, got.Lines, 2)
	for i := range got.Lines {
		want, have := placed.Lines[i], got.Lines[i]
		assert.Equal(t, want.ID, have.ID)
		assert.Equal(t, want.Line.Product.Name, have.Line.Product.Name)
		assert.True(t, want.Line.UnitPrice.Equal(have.Line.UnitPrice))
		assert.True(t, want.Line.TotalPrice.Equal(have.Line.TotalPrice))
		assert.Equal(t, want.Line.Instructions, have.Line.Instructions)
		require.Len(t, have.Line.Groups, len(want.Line.Groups))
		for j := range want.Line.Groups {
			assert.Equal(t, want.Line.Groups[j].ID, have.Line.Groups[j].ID)
		}
	}

	_, err = svc.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
}
