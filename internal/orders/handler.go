package orders

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// IdempotencyHeader lets clients retry order creation safely.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.list)
	r.Post("/orders", h.create)
	r.Get("/orders/{id}", h.show)
	r.Put("/orders/{id}", h.update)
	r.Delete("/orders/{id}", h.remove)
	r.Post("/orders/{id}/status", h.status)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
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
	sortBy, desc := httpx.QuerySort(q)
	req := ListOrdersRequest{
		Status:     Status(q.Get("status")),
		CustomerID: q.Get("customer_id"),
		Search:     q.Get("q"),
		From:       from,
		To:         to,
		SortBy:     sortBy,
		Desc:       desc,
		Asc:        httpx.QueryAsc(q),
		Page:       shared.PageFromQuery(q),
	}
	orders, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.Fail(w, h.logger, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(orders, req.Page, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Create(r.Context(), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		httpx.Fail(w, h.logger, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "update order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, h.logger, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "update order status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}
