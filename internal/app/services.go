package app

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/shopdesk/internal/audit"
	"github.com/odyssey-erp/shopdesk/internal/catalog"
	"github.com/odyssey-erp/shopdesk/internal/customers"
	"github.com/odyssey-erp/shopdesk/internal/invoices"
	"github.com/odyssey-erp/shopdesk/internal/invoices/export"
	"github.com/odyssey-erp/shopdesk/internal/orders"
	"github.com/odyssey-erp/shopdesk/internal/reports"
	"github.com/odyssey-erp/shopdesk/internal/settings"
	"github.com/odyssey-erp/shopdesk/internal/shared"
	"github.com/odyssey-erp/shopdesk/report"
)

// Services is the wired domain layer shared by the server and the worker.
type Services struct {
	Catalog     *catalog.Service
	Customers   *customers.Service
	Orders      *orders.Service
	Invoices    *invoices.Service
	Settings    *settings.Service
	Reports     *reports.Service
	Audit       *audit.Service
	ReportCache *reports.Cache
	Idempotency *shared.IdempotencyStore
	Gotenberg   *report.Client
}

// ServiceParams carries the infrastructure the domain layer is built on.
type ServiceParams struct {
	Config *Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	// Events receives every committed domain event. The report cache is
	// appended automatically.
	Events shared.Publishers
}

// BuildServices wires repositories and services. Cross-module lookups that
// would otherwise form construction cycles are set after creation.
func BuildServices(p ServiceParams) (*Services, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auditLog := shared.NewAuditLogger(p.Pool)
	idem := shared.NewIdempotencyStore(p.Pool)

	cache := reports.NewCache(p.Redis, p.Config.ReportCacheTTL, logger)
	events := append(shared.Publishers{cache}, p.Events...)

	gotenberg := report.NewClient(p.Config.GotenbergURL)
	pdf, err := export.NewPDFExporter(gotenberg)
	if err != nil {
		return nil, fmt.Errorf("app: pdf exporter: %w", err)
	}

	settingsSvc := settings.NewService(settings.NewRepository(p.Pool), auditLog, events, logger)
	catalogSvc := catalog.NewService(catalog.NewRepository(p.Pool), auditLog, events, logger)
	customersSvc := customers.NewService(customers.NewRepository(p.Pool), nil, auditLog, events, logger)
	ordersSvc := orders.NewService(orders.NewRepository(p.Pool), customersSvc, orders.ServiceDeps{
		Idempotency: idem,
		Audit:       auditLog,
		Events:      events,
		Logger:      logger,
	})
	invoicesSvc := invoices.NewService(invoices.NewRepository(p.Pool), invoices.ServiceDeps{
		Orders:    ordersSvc,
		Customers: customersSvc,
		Settings:  settingsSvc,
		Renderer:  pdf,
		Audit:     auditLog,
		Events:    events,
		Logger:    logger,
	})
	customersSvc.SetOrderCounter(ordersSvc)
	ordersSvc.SetInvoiceLookup(invoicesSvc)

	reportsSvc := reports.NewService(ordersSvc, catalogSvc, invoicesSvc, cache, logger)

	return &Services{
		Catalog:     catalogSvc,
		Customers:   customersSvc,
		Orders:      ordersSvc,
		Invoices:    invoicesSvc,
		Settings:    settingsSvc,
		Reports:     reportsSvc,
		Audit:       audit.NewService(audit.NewRepository(p.Pool)),
		ReportCache: cache,
		Idempotency: idem,
		Gotenberg:   gotenberg,
	}, nil
}

// Handlers returns the API handlers in mount order.
func (s *Services) Handlers(logger *slog.Logger) []RouteMounter {
	return []RouteMounter{
		catalog.NewHandler(logger, s.Catalog),
		customers.NewHandler(logger, s.Customers),
		orders.NewHandler(logger, s.Orders),
		invoices.NewHandler(logger, s.Invoices),
		settings.NewHandler(logger, s.Settings),
		reports.NewHandler(logger, s.Reports),
		audit.NewHandler(logger, s.Audit),
	}
}
