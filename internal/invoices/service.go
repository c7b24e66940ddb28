package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/shopdesk/internal/customers"
	"github.com/odyssey-erp/shopdesk/internal/orders"
	"github.com/odyssey-erp/shopdesk/internal/settings"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	NextSequence(ctx context.Context) (int64, error)
	Insert(ctx context.Context, inv Invoice) error
	Get(ctx context.Context, id string) (Invoice, error)
	GetByOrder(ctx context.Context, orderID string) (Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Open(ctx context.Context) ([]Invoice, error)
}

// OrderSource loads the order being invoiced.
type OrderSource interface {
	Get(ctx context.Context, id string) (orders.Order, error)
}

// CustomerSource loads the bill-to customer.
type CustomerSource interface {
	Get(ctx context.Context, id string) (customers.Customer, error)
}

// SettingsSource provides the tax rate, prefix and company details.
type SettingsSource interface {
	Get(ctx context.Context) (settings.CompanySettings, error)
}

// Renderer turns an invoice into a printable PDF.
type Renderer interface {
	RenderInvoice(ctx context.Context, doc Document) ([]byte, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Document bundles what a printable invoice needs.
type Document struct {
	Invoice   Invoice
	Breakdown Breakdown
	Company   settings.CompanySettings
	Words     string
}

// Service issues invoices and tracks their payments.
type Service struct {
	repo      RepositoryPort
	orders    OrderSource
	customers CustomerSource
	settings  SettingsSource
	renderer  Renderer
	audit     AuditPort
	events    shared.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceDeps groups the collaborators of Service.
type ServiceDeps struct {
	Orders    OrderSource
	Customers CustomerSource
	Settings  SettingsSource
	Renderer  Renderer
	Audit     AuditPort
	Events    shared.EventPublisher
	Logger    *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps ServiceDeps) *Service {
	s := &Service{
		repo:      repo,
		orders:    deps.Orders,
		customers: deps.Customers,
		settings:  deps.Settings,
		renderer:  deps.Renderer,
		audit:     deps.Audit,
		events:    deps.Events,
		logger:    deps.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = shared.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// FormatNumber renders an invoice number such as INV-0042.
func FormatNumber(prefix string, sequence int64) string {
	return fmt.Sprintf("%s-%04d", prefix, sequence)
}

// Create issues the invoice for an order. When the order already has one it
// is returned with created=false.
func (s *Service) Create(ctx context.Context, orderID string) (Invoice, bool, error) {
	existing, err := s.repo.GetByOrder(ctx, orderID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrInvoiceNotFound) {
		return Invoice{}, false, fmt.Errorf("create invoice: %w", err)
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return Invoice{}, false, fmt.Errorf("create invoice: %w", err)
	}
	company, err := s.settings.Get(ctx)
	if err != nil {
		return Invoice{}, false, fmt.Errorf("create invoice: %w", err)
	}
	customer := s.snapshotCustomer(ctx, order)

	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return Invoice{}, false, fmt.Errorf("create invoice: number: %w", err)
	}

	now := s.now()
	b := Calculate(InputFromOrder(order, company.TaxRate))
	inv := Invoice{
		ID:                 uuid.NewString(),
		Number:             FormatNumber(company.InvoicePrefix, seq),
		Sequence:           seq,
		OrderID:            order.ID,
		Customer:           customer,
		Items:              append([]orders.Item(nil), order.Items...),
		ShippingCost:       order.ShippingCost,
		OutstandingAmount:  order.OutstandingAmount,
		IncludeOutstanding: order.IncludeOutstanding,
		TaxRate:            company.TaxRate,
		Total:              b.GrandTotal.InexactFloat64(),
		PaidStatus:         StatusUnpaid,
		PaymentHistory:     []PaymentRecord{},
		IssuedAt:           now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, inv); err != nil {
		if errors.Is(err, ErrInvoiceExists) {
			// lost a race with another request for the same order
			s.logger.Warn("invoice number unused", slog.String("order_id", orderID), slog.String("number", inv.Number))
			existing, getErr := s.repo.GetByOrder(ctx, orderID)
			if getErr != nil {
				return Invoice{}, false, fmt.Errorf("create invoice: %w", getErr)
			}
			return existing, false, nil
		}
		return Invoice{}, false, fmt.Errorf("create invoice: %w", err)
	}

	s.record(ctx, "invoice.create", inv.ID, map[string]any{"number": inv.Number, "order_id": inv.OrderID, "total": inv.Total})
	s.events.Publish(ctx, shared.NewEvent(shared.EventInvoiceCreated, inv.ID, map[string]any{"number": inv.Number, "order_id": inv.OrderID}))
	return inv, true, nil
}

func (s *Service) snapshotCustomer(ctx context.Context, order orders.Order) CustomerSnapshot {
	snap := CustomerSnapshot{ID: order.CustomerID, Name: order.CustomerName}
	if s.customers == nil {
		return snap
	}
	c, err := s.customers.Get(ctx, order.CustomerID)
	if err != nil {
		s.logger.Warn("invoice customer lookup", slog.String("customer_id", order.CustomerID), slog.Any("error", err))
		return snap
	}
	return CustomerSnapshot{
		ID:      c.ID,
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.FullAddress(),
		GSTIN:   c.GSTIN,
	}
}

// UpdatePaymentStatus sets the status directly, keeping amount_paid consistent:
// paid settles the total, unpaid clears it, partially_paid needs an amount
// strictly between zero and the total.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, req PaymentStatusRequest) (Invoice, error) {
	if err := shared.Validate(req); err != nil {
		return Invoice{}, err
	}
	return s.applyPayment(ctx, id, "invoice.payment_status", func(inv Invoice) (PaidStatus, decimal.Decimal, error) {
		total := cents(inv.Total)
		switch req.PaidStatus {
		case StatusPaid:
			return StatusPaid, total, nil
		case StatusUnpaid:
			return StatusUnpaid, decimal.Zero, nil
		default:
			if req.AmountPaid == nil {
				return "", decimal.Zero, shared.NewValidationError("amount_paid", "is required for partially_paid")
			}
			amount := cents(*req.AmountPaid)
			if !amount.IsPositive() || amount.GreaterThanOrEqual(total) {
				return "", decimal.Zero, shared.NewValidationError("amount_paid", "must be between 0 and the invoice total")
			}
			return StatusPartiallyPaid, amount, nil
		}
	}, req.Method, req.Note)
}

// AddPayment records an incremental payment and derives the status.
func (s *Service) AddPayment(ctx context.Context, id string, req AddPaymentRequest) (Invoice, error) {
	if err := shared.Validate(req); err != nil {
		return Invoice{}, err
	}
	return s.applyPayment(ctx, id, "invoice.payment", func(inv Invoice) (PaidStatus, decimal.Decimal, error) {
		total := cents(inv.Total)
		delta := cents(req.Amount)
		if !delta.IsPositive() {
			return "", decimal.Zero, shared.NewValidationError("amount", "must be at least 0.01")
		}
		paid := cents(inv.AmountPaid).Add(delta)
		if paid.GreaterThan(total) {
			return "", decimal.Zero, shared.NewValidationError("amount", "exceeds the amount due")
		}
		if paid.Equal(total) {
			return StatusPaid, total, nil
		}
		return StatusPartiallyPaid, paid, nil
	}, req.Method, req.Note)
}

type paymentRule func(inv Invoice) (PaidStatus, decimal.Decimal, error)

func (s *Service) applyPayment(ctx context.Context, id, action string, rule paymentRule, method, note string) (Invoice, error) {
	var updated Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		status, amount, err := rule(inv)
		if err != nil {
			return err
		}
		now := s.now()
		newPaid := amount.InexactFloat64()
		if status == StatusPaid {
			newPaid = inv.Total
		}
		inv.PaymentHistory = append(inv.PaymentHistory, PaymentRecord{
			ID:         uuid.NewString(),
			PaidStatus: status,
			AmountPaid: newPaid,
			Delta:      amount.Sub(cents(inv.AmountPaid)).InexactFloat64(),
			Method:     method,
			Note:       note,
			RecordedAt: now,
			RecordedBy: shared.ActorFromContext(ctx),
		})
		inv.PaidStatus = status
		inv.AmountPaid = newPaid
		inv.UpdatedAt = now
		updated = inv
		return tx.Replace(ctx, inv)
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("update invoice payment: %w", err)
	}
	s.record(ctx, action, id, map[string]any{"paid_status": string(updated.PaidStatus), "amount_paid": updated.AmountPaid})
	s.events.Publish(ctx, shared.NewEvent(shared.EventInvoicePayment, id, map[string]any{
		"paid_status": string(updated.PaidStatus),
		"amount_paid": updated.AmountPaid,
	}))
	return updated, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByOrder returns the invoice issued for an order.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (Invoice, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// ExistsForOrder reports whether an order has been invoiced.
func (s *Service) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	_, err := s.repo.GetByOrder(ctx, orderID)
	if errors.Is(err, ErrInvoiceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns a filtered page of invoices.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.PaidStatus != "" && !req.PaidStatus.Valid() {
		return nil, 0, shared.NewValidationError("paid_status", "unknown status")
	}
	return s.repo.List(ctx, req)
}

// OpenInvoices returns unpaid and partially paid invoices.
func (s *Service) OpenInvoices(ctx context.Context) ([]Invoice, error) {
	return s.repo.Open(ctx)
}

// Breakdown recomputes the arithmetic of a stored invoice.
func (s *Service) Breakdown(ctx context.Context, id string) (Breakdown, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Breakdown{}, err
	}
	return Calculate(InputFromInvoice(inv)), nil
}

// Document assembles everything needed to print an invoice.
func (s *Service) Document(ctx context.Context, id string) (Document, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	company, err := s.settings.Get(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("invoice document: %w", err)
	}
	b := Calculate(InputFromInvoice(inv))
	return Document{
		Invoice:   inv,
		Breakdown: b,
		Company:   company,
		Words:     AmountInWords(b.RoundedTotal, company.CurrencyName),
	}, nil
}

// RenderPDF produces the printable invoice.
func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, Invoice, error) {
	if s.renderer == nil {
		return nil, Invoice{}, errors.New("render invoice: pdf renderer not configured")
	}
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, Invoice{}, err
	}
	pdf, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, Invoice{}, fmt.Errorf("render invoice %s: %w", doc.Invoice.Number, err)
	}
	return pdf, doc.Invoice, nil
}

func (s *Service) record(ctx context.Context, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "invoice", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("audit invoice", slog.String("action", action), slog.Any("error", err))
	}
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
