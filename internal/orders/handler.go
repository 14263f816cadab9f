package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/epsum/epsumstock/internal/platform/httpx"
	"github.com/epsum/epsumstock/internal/shared"
	"github.com/epsum/epsumstock/internal/tenant"
)

const idempotencyModule = "orders"

// IdempotencyStore deduplicates order submissions carrying an Idempotency-Key.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Remember(ctx context.Context, key, module, value string) error
	Lookup(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key, module string) error
}

// Handler exposes order endpoints as JSON.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyStore
}

// NewHandler builds the order handler. idempotency may be nil.
func NewHandler(logger *slog.Logger, service *Service, idempotency IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/find", h.find)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/print", h.print)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, owner int64, err error) {
	attrs := []any{slog.Any("error", err), slog.Int64("owner", owner), slog.String("path", r.URL.Path)}
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, attrs...)
	} else {
		h.logger.Info(msg, attrs...)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	status := tenant.OrderStatus(r.URL.Query().Get("status"))
	page, err := h.service.List(r.Context(), owner, status, httpx.PageParam(r))
	if err != nil {
		h.fail(w, r, "list orders", owner, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	views, err := h.service.Find(r.Context(), owner, tenant.OrderStatus(q.Get("status")), q.Get("customer-name"))
	if err != nil {
		h.fail(w, r, "find orders", owner, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		h.fail(w, r, "get order", owner, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	var input OrderInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}

	scoped := ""
	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idempotency != nil {
		scoped = strconv.FormatInt(owner, 10) + ":" + key
		if h.claim(w, r, owner, scoped) {
			return
		}
	}

	order, err := h.service.Create(r.Context(), owner, input)
	if err != nil {
		h.release(r, scoped)
		h.fail(w, r, "create order", owner, err)
		return
	}
	if scoped != "" {
		if err := h.idempotency.Remember(r.Context(), scoped, idempotencyModule, strconv.FormatInt(order.ID, 10)); err != nil {
			h.logger.Warn("remember idempotency key", slog.Any("error", err))
		}
	}
	h.respondCreated(w, r, owner, order)
}

// release frees a claimed key after a failed create so the client may retry.
func (h *Handler) release(r *http.Request, scoped string) {
	if scoped == "" {
		return
	}
	if err := h.idempotency.Delete(context.WithoutCancel(r.Context()), scoped, idempotencyModule); err != nil {
		h.logger.Warn("release idempotency key", slog.Any("error", err))
	}
}

// claim reserves the idempotency key. It returns true when a response was
// already written, either a replay of the earlier order or a conflict.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, owner int64, scoped string) bool {
	err := h.idempotency.CheckAndInsert(r.Context(), scoped, idempotencyModule)
	if err == nil {
		return false
	}
	if !errors.Is(err, shared.ErrIdempotencyConflict) {
		h.logger.Error("claim idempotency key", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Idempotency Unavailable", "")
		return true
	}
	value, err := h.idempotency.Lookup(r.Context(), scoped, idempotencyModule)
	if err == nil {
		if id, perr := strconv.ParseInt(value, 10, 64); perr == nil {
			view, err := h.service.Get(r.Context(), owner, id)
			switch {
			case err == nil:
				w.Header().Set("Idempotent-Replayed", "true")
				httpx.JSON(w, http.StatusOK, view)
				return true
			case errors.Is(err, tenant.ErrNotFound):
				// The remembered order was deleted; the key no longer guards anything.
				if h.reclaim(r, scoped) {
					return false
				}
			}
		}
	}
	httpx.Problem(w, http.StatusConflict, "Duplicate Request", "a request with this Idempotency-Key is being processed")
	return true
}

// reclaim drops a key whose order is gone and claims it again for this request.
func (h *Handler) reclaim(r *http.Request, scoped string) bool {
	if err := h.idempotency.Delete(r.Context(), scoped, idempotencyModule); err != nil {
		h.logger.Warn("release idempotency key", slog.Any("error", err))
		return false
	}
	return h.idempotency.CheckAndInsert(r.Context(), scoped, idempotencyModule) == nil
}

func (h *Handler) respondCreated(w http.ResponseWriter, r *http.Request, owner int64, order tenant.Order) {
	h.logger.Info("order created", slog.Int64("owner", owner), slog.Int64("order_id", order.ID))
	view, err := h.service.Get(r.Context(), owner, order.ID)
	if err != nil {
		httpx.JSON(w, http.StatusCreated, order)
		return
	}
	w.Header().Set("Location", "/orders/"+strconv.FormatInt(order.ID, 10))
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input OrderInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), owner, id, input); err != nil {
		h.fail(w, r, "update order", owner, err)
		return
	}
	h.logger.Info("order updated", slog.Int64("owner", owner), slog.Int64("order_id", id))
	view, err := h.service.Get(r.Context(), owner, id)
	if err != nil {
		h.fail(w, r, "get order", owner, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		h.fail(w, r, "delete order", owner, err)
		return
	}
	h.logger.Info("order deleted", slog.Int64("owner", owner), slog.Int64("order_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) print(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Print(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("print order", slog.Any("error", err), slog.Int64("order_id", id))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+doc.Filename)
	w.Header().Set("Content-Length", strconv.Itoa(doc.Size))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
