package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/epsum/epsumstock/internal/platform/httpx"
)

// Handler serves the dashboard as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	d, err := h.service.Retrieve(r.Context(), owner)
	if err != nil {
		h.logger.Error("retrieve dashboard", slog.Any("error", err), slog.Int64("owner", owner))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
