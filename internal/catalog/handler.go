package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// Handler exposes product endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
	r.Get("/products/categories", h.categories)
	r.Get("/products/{id}", h.show)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.remove)
	r.Post("/products/{id}/restock", h.restock)
	r.Post("/products/{id}/write-off", h.writeOff)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxStock, err := httpx.QueryFloat(q, "max_stock")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sortBy, desc := httpx.QuerySort(q)
	req := ListProductsRequest{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		MaxStock: maxStock,
		SortBy:   sortBy,
		Desc:     desc,
		Page:     shared.PageFromQuery(q),
	}
	products, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.Fail(w, h.logger, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(products, req.Page, total))
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.Fail(w, h.logger, "list categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.Fail(w, h.logger, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, h.logger, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Restock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "restock product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	var req WriteOffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.WriteOff(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "write off stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
