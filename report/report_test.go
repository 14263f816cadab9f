package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/epsum/epsumstock/internal/orders"
	"github.com/epsum/epsumstock/internal/tenant"
)

func sampleOrder() orders.OrderView {
	return orders.OrderView{
		ID:           42,
		Status:       tenant.OrderStatusPaid,
		Date:         time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC),
		CustomerName: "Ann <Admin>",
		Items: []orders.ItemView{
			{ProductID: 1, ProductName: "Bolt", Quantity: 3, Price: decimal.RequireFromString("1.5"), Amount: decimal.RequireFromString("4.5")},
		},
		TotalQuantity: 3,
		TotalAmount:   decimal.RequireFromString("4.5"),
	}
}

func TestOrderHTML(t *testing.T) {
	html, err := OrderHTML(sampleOrder())
	require.NoError(t, err)
	require.Contains(t, html, "Order #42")
	require.Contains(t, html, "2024-05-06 07:08")
	require.Contains(t, html, "Ann &lt;Admin&gt;")
	require.Contains(t, html, "<td class=\"num\">4.50</td>")
	require.Contains(t, html, "PAID")
}

func newGotenberg(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/forms/chromium/convert/html":
			file, header, err := r.FormFile("files")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			if header.Filename != "index.html" {
				http.Error(w, "missing index.html", http.StatusBadRequest)
				return
			}
			raw, _ := io.ReadAll(file)
			received = string(raw)
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.7 fake"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestOrderRendererPostsHTML(t *testing.T) {
	srv, received := newGotenberg(t)
	renderer := NewOrderRenderer(NewClient(srv.URL + "/"))

	pdf, err := renderer.RenderOrder(context.Background(), sampleOrder())
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7 fake", string(pdf))
	require.Contains(t, *received, "Order #42")
}

func TestRenderHTMLReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<html></html>")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "chromium crashed"))
	require.Error(t, NewClient(srv.URL).Ping(context.Background()))
}

func TestHandlerPing(t *testing.T) {
	srv, _ := newGotenberg(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Route("/report", NewHandler(NewClient(srv.URL), logger).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	down := chi.NewRouter()
	down.Route("/report", NewHandler(NewClient("http://127.0.0.1:0"), logger).MountRoutes)
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
