//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/epsum/epsumstock/internal/ledger"
	"github.com/epsum/epsumstock/internal/platform/db"
	"github.com/epsum/epsumstock/internal/tenant"
	"github.com/epsum/epsumstock/internal/tenant/storetest"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) *pgxpool.Pool {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := db.New(ctx, connString, db.PoolOptions{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, discardLogger()))
	// A second run must be a no-op.
	require.NoError(t, Migrate(ctx, pool, discardLogger()))
	return pool
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	_, err := pool.Exec(context.Background(), `
		TRUNCATE order_items, orders, products, customers, categories RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)
}

func TestIntegration_StoreSuite(t *testing.T) {
	pool := setupPostgresContainer(t, context.Background())
	suite.Run(t, &storetest.Suite{
		NewStore: func(t *testing.T) tenant.Store {
			truncate(t, pool)
			return NewStore(pool, Options{})
		},
	})
}

func TestIntegration_ConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgresContainer(t, ctx)
	store := NewStore(pool, Options{MaxAttempts: 20})

	var a, b tenant.Product
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		var err error
		if a, err = tx.InsertProduct(ctx, tenant.Product{Name: "A", Quantity: 10, Price: decimal.RequireFromString("1.00"), OwnerID: 1}); err != nil {
			return err
		}
		b, err = tx.InsertProduct(ctx, tenant.Product{Name: "B", Quantity: 10, Price: decimal.RequireFromString("1.00"), OwnerID: 1})
		return err
	}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items := []tenant.OrderItem{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
			if i%2 == 1 {
				items[0], items[1] = items[1], items[0]
			}
			err := store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
				demand, err := ledger.Aggregate(items)
				if err != nil {
					return err
				}
				return ledger.Rebalance(ctx, tx, 1, nil, demand)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	for _, id := range []int64{a.ID, b.ID} {
		p, err := store.GetProduct(ctx, 1, id)
		require.NoError(t, err)
		require.Equal(t, 0, p.Quantity)
	}
}

func TestIntegration_ReferencedCustomerCannotBeDeleted(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgresContainer(t, ctx)
	store := NewStore(pool, Options{})

	var customer tenant.Customer
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		var err error
		customer, err = tx.InsertCustomer(ctx, tenant.Customer{Name: "Ann", Address: "a", Phone: "1", OwnerID: 1})
		if err != nil {
			return err
		}
		p, err := tx.InsertProduct(ctx, tenant.Product{Name: "P", Quantity: 1, Price: decimal.RequireFromString("1.00"), OwnerID: 1})
		if err != nil {
			return err
		}
		_, err = tx.InsertOrder(ctx, tenant.Order{Status: tenant.OrderStatusPaid, CustomerID: customer.ID, OwnerID: 1,
			Items: []tenant.OrderItem{{ProductID: p.ID, Quantity: 1}}})
		return err
	}))

	err := store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		return tx.DeleteCustomer(ctx, 1, customer.ID)
	})
	require.ErrorIs(t, err, tenant.ErrDeletionNotAllowed)

	err = store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		_, err := tx.InsertCustomer(ctx, tenant.Customer{Name: "Ann", Address: "b", Phone: "2", OwnerID: 1})
		return err
	})
	require.ErrorIs(t, err, tenant.ErrNameTaken)
}

func TestIntegration_QuantitiesAboveIntegerRangeAreRejected(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgresContainer(t, ctx)
	store := NewStore(pool, Options{})

	err := store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		_, err := tx.InsertProduct(ctx, tenant.Product{Name: "Huge", Quantity: 1<<32 + 1, Price: decimal.RequireFromString("1.00"), OwnerID: 1})
		return err
	})
	require.ErrorIs(t, err, tenant.ErrValidation)

	var customer tenant.Customer
	var product tenant.Product
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		var err error
		if customer, err = tx.InsertCustomer(ctx, tenant.Customer{Name: "Ann", Address: "a", Phone: "1", OwnerID: 1}); err != nil {
			return err
		}
		product, err = tx.InsertProduct(ctx, tenant.Product{Name: "P", Quantity: 1, Price: decimal.RequireFromString("1.00"), OwnerID: 1})
		return err
	}))

	err = store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		_, err := tx.InsertOrder(ctx, tenant.Order{Status: tenant.OrderStatusPaid, CustomerID: customer.ID, OwnerID: 1,
			Items: []tenant.OrderItem{{ProductID: product.ID, Quantity: 1<<32 + 1}}})
		return err
	})
	require.ErrorIs(t, err, tenant.ErrValidation)

	count, err := store.CountOrders(ctx, 1, "")
	require.NoError(t, err)
	require.Zero(t, count)
}
