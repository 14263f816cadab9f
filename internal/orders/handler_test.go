package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/epsum/epsumstock/internal/shared"
	"github.com/epsum/epsumstock/internal/tenant"
)

func newTestRouter(t *testing.T, f *fixture, idem IdempotencyStore) http.Handler {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc, idem)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if owner, err := shared.ParseOwner(r.Header.Get(shared.OwnerHeader)); err == nil {
				r = r.WithContext(shared.ContextWithOwner(r.Context(), owner))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Route("/orders", h.MountRoutes)
	return r
}

func newIdempotency(t *testing.T) *shared.IdempotencyStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewIdempotencyStore(client, time.Hour)
}

func send(router http.Handler, method, path, body, owner string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(shared.OwnerHeader, owner)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func orderBody(f *fixture, status, customer string, items ...ItemInput) string {
	raw, _ := json.Marshal(OrderInput{Status: tenant.OrderStatus(status), CustomerID: f.customers[customer], Items: items})
	return string(raw)
}

func TestHandlerOrderLifecycle(t *testing.T) {
	f := standardFixture(t)
	router := newTestRouter(t, f, nil)

	rr := send(router, http.MethodPost, "/orders", orderBody(f, "UNPAID", "X", f.item("A", 2), f.item("B", 3)), "1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created OrderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, fmt.Sprintf("/orders/%d", created.ID), rr.Header().Get("Location"))
	require.Equal(t, "X", created.CustomerName)
	require.Equal(t, 5, created.TotalQuantity)
	require.Equal(t, "8.00", created.TotalAmount.StringFixed(2))
	require.Equal(t, 8, f.stock(t, 1, "A"))

	path := fmt.Sprintf("/orders/%d", created.ID)
	rr = send(router, http.MethodGet, path, "", "2")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = send(router, http.MethodPut, path, orderBody(f, "PAID", "Y", f.item("A", 10)), "1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, 0, f.stock(t, 1, "A"))
	require.Equal(t, 20, f.stock(t, 1, "B"))

	rr = send(router, http.MethodGet, "/orders?status=paid", "", "1")
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Items      []OrderView       `json:"items"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, page.Pagination.Total)

	rr = send(router, http.MethodGet, "/orders/find?status=PAID&customer-name=y", "", "1")
	require.Equal(t, http.StatusOK, rr.Code)
	var found []OrderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &found))
	require.Len(t, found, 1)

	rr = send(router, http.MethodDelete, path, "", "1")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 10, f.stock(t, 1, "A"))

	rr = send(router, http.MethodDelete, path, "", "1")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerReportsShortages(t *testing.T) {
	f := standardFixture(t)
	router := newTestRouter(t, f, nil)

	rr := send(router, http.MethodPost, "/orders", orderBody(f, "UNPAID", "X", f.item("A", 11)), "1")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var problem struct {
		Shortages []struct {
			ProductID int64 `json:"productId"`
			Requested int   `json:"requested"`
			Available int   `json:"available"`
		} `json:"shortages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Len(t, problem.Shortages, 1)
	require.Equal(t, 11, problem.Shortages[0].Requested)
	require.Equal(t, 10, problem.Shortages[0].Available)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	f := standardFixture(t)
	router := newTestRouter(t, f, nil)

	rr := send(router, http.MethodPost, "/orders", `{"status":`, "1")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(router, http.MethodPost, "/orders", orderBody(f, "UNPAID", "X"), "1")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(router, http.MethodGet, "/orders/abc", "", "1")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(router, http.MethodGet, "/orders?status=SHIPPED", "", "1")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(router, http.MethodGet, "/orders", "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerReplaysIdempotentCreate(t *testing.T) {
	f := standardFixture(t)
	router := newTestRouter(t, f, newIdempotency(t))
	body := orderBody(f, "UNPAID", "X", f.item("A", 4))

	rr := send(router, http.MethodPost, "/orders", body, "1", "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, rr.Code)
	var first OrderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))

	rr = send(router, http.MethodPost, "/orders", body, "1", "Idempotency-Key", "abc")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "true", rr.Header().Get("Idempotent-Replayed"))
	var replay OrderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &replay))
	require.Equal(t, first.ID, replay.ID)
	require.Equal(t, 6, f.stock(t, 1, "A"))

	rr = send(router, http.MethodPost, "/orders", orderBody(f, "UNPAID", "X", f.item("A", 1)), "1", "Idempotency-Key", "other")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 5, f.stock(t, 1, "A"))
}

func TestHandlerReleasesKeyAfterFailure(t *testing.T) {
	f := standardFixture(t)
	router := newTestRouter(t, f, newIdempotency(t))

	rr := send(router, http.MethodPost, "/orders", orderBody(f, "UNPAID", "X", f.item("A", 50)), "1", "Idempotency-Key", "retry-me")
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = send(router, http.MethodPost, "/orders", orderBody(f, "UNPAID", "X", f.item("A", 5)), "1", "Idempotency-Key", "retry-me")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 5, f.stock(t, 1, "A"))
}

func TestHandlerReclaimsKeyOfDeletedOrder(t *testing.T) {
	f := standardFixture(t)
	idem := newIdempotency(t)
	router := newTestRouter(t, f, idem)
	body := orderBody(f, "UNPAID", "X", f.item("A", 3))

	rr := send(router, http.MethodPost, "/orders", body, "1", "Idempotency-Key", "gone")
	require.Equal(t, http.StatusCreated, rr.Code)
	var first OrderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))

	rr = send(router, http.MethodDelete, fmt.Sprintf("/orders/%d", first.ID), "", "1")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 10, f.stock(t, 1, "A"))

	rr = send(router, http.MethodPost, "/orders", body, "1", "Idempotency-Key", "gone")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var second OrderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 7, f.stock(t, 1, "A"))

	rr = send(router, http.MethodPost, "/orders", body, "1", "Idempotency-Key", "gone")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "true", rr.Header().Get("Idempotent-Replayed"))

	require.NoError(t, idem.CheckAndInsert(context.Background(), "1:in-flight", "orders"))
	rr = send(router, http.MethodPost, "/orders", body, "1", "Idempotency-Key", "in-flight")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, 7, f.stock(t, 1, "A"))
}

func TestHandlerPrint(t *testing.T) {
	f := standardFixture(t)
	renderer := &fakeRenderer{}
	f.svc.renderer = renderer
	router := newTestRouter(t, f, nil)

	rr := send(router, http.MethodPost, "/orders", orderBody(f, "PAID", "Y", f.item("C", 1)), "1")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = send(router, http.MethodGet, "/orders/1/print", "", "1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.Equal(t, "attachment; filename=order-1.pdf", rr.Header().Get("Content-Disposition"))
	require.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))

	rr = send(router, http.MethodGet, "/orders/9/print", "", "1")
	require.Equal(t, http.StatusNotFound, rr.Code)

	renderer.err = io.ErrUnexpectedEOF
	rr = send(router, http.MethodGet, "/orders/1/print", "", "1")
	require.Equal(t, http.StatusBadGateway, rr.Code)
}
