package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/epsum/epsumstock/internal/orders"
	"github.com/epsum/epsumstock/internal/shared"
	"github.com/epsum/epsumstock/internal/tenant"
	"github.com/epsum/epsumstock/internal/tenant/memory"
)

func seedScenario(t *testing.T, store *memory.Store, owner int64) {
	t.Helper()
	ctx := context.Background()
	ids := map[string]int64{}
	err := store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		cat, err := tx.InsertCategory(ctx, tenant.Category{Name: "Parts", OwnerID: owner})
		if err != nil {
			return err
		}
		for _, name := range []string{"X", "Y"} {
			c, err := tx.InsertCustomer(ctx, tenant.Customer{Name: name, Address: "a", Phone: "1", OwnerID: owner})
			if err != nil {
				return err
			}
			ids[name] = c.ID
		}
		for _, p := range []struct {
			name  string
			qty   int
			price string
		}{{"A", 10, "1.00"}, {"B", 20, "2.00"}, {"C", 30, "3.00"}} {
			created, err := tx.InsertProduct(ctx, tenant.Product{Name: p.name, CategoryID: &cat.ID, Quantity: p.qty, Price: decimal.RequireFromString(p.price), OwnerID: owner})
			if err != nil {
				return err
			}
			ids[p.name] = created.ID
		}
		return nil
	})
	require.NoError(t, err)

	svc := orders.NewService(store, nil, nil, orders.Config{})
	item := func(name string, qty int) orders.ItemInput {
		return orders.ItemInput{ProductID: ids[name], Quantity: qty}
	}
	for _, input := range []orders.OrderInput{
		{Status: tenant.OrderStatusUnpaid, CustomerID: ids["X"], Items: []orders.ItemInput{item("A", 5), item("B", 10)}},
		{Status: tenant.OrderStatusPaid, CustomerID: ids["Y"], Items: []orders.ItemInput{item("A", 3), item("B", 8)}},
		{Status: tenant.OrderStatusPaid, CustomerID: ids["Y"], Items: []orders.ItemInput{item("A", 2), item("C", 5)}},
	} {
		_, err := svc.Create(ctx, owner, input)
		require.NoError(t, err)
	}
}

func TestRetrieveScenario(t *testing.T) {
	store := memory.NewStore()
	seedScenario(t, store, 1)

	d, err := NewService(store).Retrieve(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, d.TotalCustomers)
	require.Equal(t, 1, d.TotalCategories)
	require.Equal(t, 3, d.TotalProducts)
	require.Equal(t, 1, d.TotalUnpaidOrders)
	require.Equal(t, 2, d.TotalPaidOrders)
	require.Equal(t, "36.00", d.TotalSales.StringFixed(2))

	empty, err := NewService(store).Retrieve(context.Background(), 2)
	require.NoError(t, err)
	require.Zero(t, empty.TotalCustomers)
	require.True(t, empty.TotalSales.IsZero())
}

func TestRetrieveUsesCurrentPrices(t *testing.T) {
	store := memory.NewStore()
	seedScenario(t, store, 1)
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx tenant.Tx) error {
		products, _, err := tx.ListProducts(ctx, 1, tenant.ListFilter{Search: "C"})
		if err != nil {
			return err
		}
		p := products[0]
		p.Price = decimal.RequireFromString("4.50")
		return tx.UpdateProduct(ctx, p)
	})
	require.NoError(t, err)

	d, err := NewService(store).Retrieve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "43.50", d.TotalSales.StringFixed(2))
}

type failingSource struct {
	tenant.Reader
}

var errBroken = errors.New("storage offline")

func (failingSource) CountProducts(context.Context, int64) (int, error) {
	return 0, errBroken
}

func TestRetrievePropagatesErrors(t *testing.T) {
	store := memory.NewStore()
	_, err := NewService(failingSource{Reader: store}).Retrieve(context.Background(), 1)
	require.ErrorIs(t, err, errBroken)
}

func TestHandlerShow(t *testing.T) {
	store := memory.NewStore()
	seedScenario(t, store, 7)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(store))
	r := chi.NewRouter()
	r.Route("/dashboard", h.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(shared.ContextWithOwner(req.Context(), 7))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "36", body["totalSales"])
	require.EqualValues(t, 2, body["totalPaidOrders"])
}
