package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/shopdesk/internal/catalog"
	"github.com/odyssey-erp/shopdesk/internal/invoices"
	"github.com/odyssey-erp/shopdesk/internal/orders"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

// OrderSource lists orders dated in [from, to).
type OrderSource interface {
	OrdersBetween(ctx context.Context, from, to time.Time) ([]orders.Order, error)
}

// ProductSource lists the whole catalog.
type ProductSource interface {
	AllProducts(ctx context.Context) ([]catalog.Product, error)
}

// InvoiceSource lists invoices that still have a balance.
type InvoiceSource interface {
	OpenInvoices(ctx context.Context) ([]invoices.Invoice, error)
}

// Service builds dashboard reports with the cache layer in front.
type Service struct {
	orders   OrderSource
	products ProductSource
	invoices InvoiceSource
	cache    *Cache
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the report sources with a Cache helper.
func NewService(ordersSrc OrderSource, products ProductSource, invoicesSrc InvoiceSource, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orders:   ordersSrc,
		products: products,
		invoices: invoicesSrc,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Normalize fills defaults and checks the window.
func (s *Service) Normalize(f Filter) (Filter, error) {
	if f.To.IsZero() {
		f.To = endOfDay(s.now())
	}
	if f.From.IsZero() {
		f.From = f.To.Add(-DefaultWindow)
	}
	if !f.From.Before(f.To) {
		return Filter{}, shared.NewValidationError("from", "must be before to")
	}
	if f.LowStockThreshold < 0 {
		return Filter{}, shared.NewValidationError("low_stock", "must be at least 0")
	}
	if f.LowStockThreshold == 0 {
		f.LowStockThreshold = DefaultLowStockThreshold
	}
	if f.TopN <= 0 {
		f.TopN = DefaultTopN
	}
	f.From, f.To = f.From.UTC(), f.To.UTC()
	return f, nil
}

// endOfDay is the next UTC midnight, so every default window of a day shares
// one cache key.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// Dashboard returns every report section for the window.
func (s *Service) Dashboard(ctx context.Context, f Filter) (Dashboard, error) {
	f, err := s.Normalize(f)
	if err != nil {
		return Dashboard{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "dashboard",
		f.From.Format(time.RFC3339), f.To.Format(time.RFC3339),
		strconv.FormatFloat(f.LowStockThreshold, 'f', -1, 64), strconv.Itoa(f.TopN))
	if err != nil {
		s.logger.Warn("report cache key", slog.Any("error", err))
		return s.build(ctx, f)
	}
	d, err, _ := singleflightBuild(ctx, key, func(ctx context.Context) (Dashboard, error) {
		return FetchJSON(ctx, s.cache, key, func(ctx context.Context) (Dashboard, error) {
			return s.build(ctx, f)
		})
	})
	return d, err
}

// LowStock lists products at or below threshold without caching.
func (s *Service) LowStock(ctx context.Context, threshold float64) ([]LowStockItem, error) {
	if threshold < 0 {
		return nil, shared.NewValidationError("threshold", "must be at least 0")
	}
	products, err := s.products.AllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("low stock report: %w", err)
	}
	return LowStock(products, threshold), nil
}

// Warmup builds the default dashboard so the first visitor hits the cache.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.Dashboard(ctx, Filter{})
	return err
}

func (s *Service) build(ctx context.Context, f Filter) (Dashboard, error) {
	var (
		orderList   []orders.Order
		productList []catalog.Product
		openList    []invoices.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orderList, err = s.orders.OrdersBetween(gctx, f.From, f.To)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		productList, err = s.products.AllProducts(gctx)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		openList, err = s.invoices.OpenInvoices(gctx)
		if err != nil {
			return fmt.Errorf("load invoices: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("build dashboard: %w", err)
	}
	return Dashboard{
		Filter:      f,
		Sales:       Summarize(orderList),
		TopProducts: TopProducts(orderList, f.TopN),
		LowStock:    LowStock(productList, f.LowStockThreshold),
		Receivables: OutstandingBalances(openList),
		Valuation:   Value(productList),
		GeneratedAt: s.now(),
	}, nil
}
