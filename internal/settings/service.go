package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// RepositoryPort abstracts settings storage.
type RepositoryPort interface {
	Load(ctx context.Context) (CompanySettings, error)
	Save(ctx context.Context, s CompanySettings) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service reads and updates company settings.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	events shared.EventPublisher
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, events shared.EventPublisher, logger *slog.Logger) *Service {
	if events == nil {
		events = shared.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, events: events, logger: logger}
}

// Get returns the current settings with defaults filled in.
func (s *Service) Get(ctx context.Context) (CompanySettings, error) {
	cs, err := s.repo.Load(ctx)
	if err != nil {
		return CompanySettings{}, fmt.Errorf("load settings: %w", err)
	}
	return withDefaults(cs), nil
}

// Update applies a partial change.
func (s *Service) Update(ctx context.Context, req UpdateSettingsRequest) (CompanySettings, error) {
	if err := shared.Validate(req); err != nil {
		return CompanySettings{}, err
	}
	cs, err := s.Get(ctx)
	if err != nil {
		return CompanySettings{}, err
	}
	setString(&cs.Name, req.Name)
	setString(&cs.Address, req.Address)
	setString(&cs.Phone, req.Phone)
	setString(&cs.Email, req.Email)
	setString(&cs.CurrencySymbol, req.CurrencySymbol)
	setString(&cs.CurrencyName, req.CurrencyName)
	setString(&cs.LogoURL, req.LogoURL)
	if req.GSTIN != nil {
		cs.GSTIN = strings.ToUpper(strings.TrimSpace(*req.GSTIN))
	}
	if req.InvoicePrefix != nil {
		cs.InvoicePrefix = strings.ToUpper(strings.TrimSpace(*req.InvoicePrefix))
	}
	if req.TaxRate != nil {
		cs.TaxRate = *req.TaxRate
	}
	if req.Bank != nil {
		cs.Bank = *req.Bank
	}
	cs = withDefaults(cs)
	cs.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, cs); err != nil {
		return CompanySettings{}, fmt.Errorf("save settings: %w", err)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{Action: "settings.update", Entity: "settings", EntityID: DocumentID}); err != nil {
			s.logger.Warn("audit settings", slog.Any("error", err))
		}
	}
	s.events.Publish(ctx, shared.NewEvent(shared.EventSettingsUpdated, DocumentID, nil))
	return cs, nil
}

// TaxRate returns the configured rate, used when invoices snapshot an order.
func (s *Service) TaxRate(ctx context.Context) (float64, error) {
	cs, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cs.TaxRate, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func withDefaults(cs CompanySettings) CompanySettings {
	if cs.InvoicePrefix == "" {
		cs.InvoicePrefix = DefaultInvoicePrefix
	}
	if cs.CurrencySymbol == "" {
		cs.CurrencySymbol = DefaultCurrencySymbol
	}
	if cs.CurrencyName == "" {
		cs.CurrencyName = DefaultCurrencyName
	}
	return cs
}
