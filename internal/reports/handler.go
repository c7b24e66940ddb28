package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/dashboard", h.dashboard)
	r.Get("/reports/low-stock", h.lowStock)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := httpx.QueryDate(q, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(q, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	threshold, err := httpx.QueryFloat(q, "low_stock")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	top, err := httpx.QueryInt(q, "top", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var f Filter
	if from != nil {
		f.From = *from
	}
	if to != nil {
		f.To = *to
	}
	if threshold != nil {
		f.LowStockThreshold = *threshold
	}
	f.TopN = top
	d, err := h.service.Dashboard(r.Context(), f)
	if err != nil {
		httpx.Fail(w, h.logger, "build dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := httpx.QueryFloat(r.URL.Query(), "threshold")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit := float64(DefaultLowStockThreshold)
	if threshold != nil {
		limit = *threshold
	}
	items, err := h.service.LowStock(r.Context(), limit)
	if err != nil {
		httpx.Fail(w, h.logger, "low stock report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "threshold": limit})
}
