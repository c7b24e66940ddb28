package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
)

// Handler exposes the settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.show)
	r.Put("/settings", h.update)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	cs, err := h.service.Get(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "get settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cs)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	cs, err := h.service.Update(r.Context(), req)
	if err != nil {
		httpx.Fail(w, h.logger, "update settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cs)
}
