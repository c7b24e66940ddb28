package audit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
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
	if from != nil {
		filters.From = *from
	}
	if to != nil {
		filters.To = to.AddDate(0, 0, 1)
	}
	page := shared.PageFromQuery(q)
	filters.Page, filters.PageSize = page.Page, page.PerPage

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.Fail(w, h.logger, "audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
