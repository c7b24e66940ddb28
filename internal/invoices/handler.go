package invoices

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// Handler exposes invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/{id}/invoice", h.create)
	r.Get("/orders/{id}/invoice", h.showByOrder)
	r.Get("/invoices", h.list)
	r.Get("/invoices/{id}", h.show)
	r.Get("/invoices/{id}/breakdown", h.breakdown)
	r.Put("/invoices/{id}/payment-status", h.paymentStatus)
	r.Post("/invoices/{id}/payments", h.addPayment)
	r.Get("/invoices/{id}/pdf", h.pdf)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	inv, created, err := h.service.Create(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "create invoice", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, inv)
}

func (h *Handler) showByOrder(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "get order invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy, desc := httpx.QuerySort(q)
	req := ListInvoicesRequest{
		PaidStatus: PaidStatus(q.Get("paid_status")),
		CustomerID: q.Get("customer_id"),
		Search:     q.Get("q"),
		SortBy:     sortBy,
		Desc:       desc,
		Asc:        httpx.QueryAsc(q),
		Page:       shared.PageFromQuery(q),
	}
	invoices, total, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.Fail(w, h.logger, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(invoices, req.Page, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

type breakdownView struct {
	Breakdown
	AmountInWords string `json:"amount_in_words"`
}

func (h *Handler) breakdown(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "invoice breakdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, breakdownView{Breakdown: doc.Breakdown, AmountInWords: doc.Words})
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	var req PaymentStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "update payment status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	var req AddPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.AddPayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Fail(w, h.logger, "add payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	data, inv, err := h.service.RenderPDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "render invoice pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, inv.Number))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
