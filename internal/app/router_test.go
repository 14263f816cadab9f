package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/epsum/epsumstock/internal/catalog"
	"github.com/epsum/epsumstock/internal/dashboard"
	"github.com/epsum/epsumstock/internal/observability"
	"github.com/epsum/epsumstock/internal/orders"
	"github.com/epsum/epsumstock/internal/shared"
	"github.com/epsum/epsumstock/internal/tenant/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := discardLogger()
	store := memory.NewStore()
	metrics := observability.NewMetrics()
	catalogSvc := catalog.NewService(store, catalog.Config{})
	ordersSvc := orders.NewService(store, nil, metrics, orders.Config{})
	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           &Config{RateLimitPerMinute: 1000},
		CatalogHandler:   catalog.NewHandler(logger, catalogSvc, nil),
		OrdersHandler:    orders.NewHandler(logger, ordersSvc, nil),
		DashboardHandler: dashboard.NewHandler(logger, dashboard.NewService(store)),
		Metrics:          metrics,
	})
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouterServesDomainRoutes(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Tools"}`))
	req.Header.Set(shared.OwnerHeader, "7")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(shared.OwnerHeader, "7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"totalCategories":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterProblemForUnknownRoute(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "epsumstock_http_requests_total")
}
