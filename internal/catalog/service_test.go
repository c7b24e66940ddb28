package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/ledger"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	products map[string]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[string]Product)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]Product, len(m.products))
	for k, v := range m.products {
		snapshot[k] = v
	}
	if err := fn(ctx, memoryTx{m}); err != nil {
		m.products = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (m *memoryRepo) List(_ context.Context, req ListProductsRequest) ([]Product, int, error) {
	all, _ := m.All(context.Background())
	var out []Product
	for _, p := range all {
		if req.Category != "" && p.Category != req.Category {
			continue
		}
		if req.MaxStock != nil && p.TotalStock > *req.MaxStock {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) All(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memoryTx struct{ m *memoryRepo }

func (t memoryTx) GetForUpdate(_ context.Context, id string) (Product, error) {
	p, ok := t.m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (t memoryTx) Insert(_ context.Context, p Product) error {
	t.m.products[p.ID] = p
	return nil
}

func (t memoryTx) Replace(_ context.Context, p Product) error {
	if _, ok := t.m.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	t.m.products[p.ID] = p
	return nil
}

func (t memoryTx) Delete(_ context.Context, id string) error {
	if _, ok := t.m.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(t.m.products, id)
	return nil
}

type auditSpy struct {
	logs []shared.AuditLog
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type eventSpy struct {
	events []shared.Event
}

func (e *eventSpy) Publish(_ context.Context, evt shared.Event) {
	e.events = append(e.events, evt)
}

func newTestService() (*Service, *memoryRepo, *auditSpy, *eventSpy) {
	repo := newMemoryRepo()
	audit := &auditSpy{}
	events := &eventSpy{}
	return NewService(repo, audit, events, nil), repo, audit, events
}

func TestCreateOpensInitialBatch(t *testing.T) {
	svc, _, audit, events := newTestService()
	p, err := svc.Create(context.Background(), CreateProductRequest{Name: " Basmati Rice ", Price: 120, Category: "grains", InitialStock: 25.5, CostPrice: 90})
	require.NoError(t, err)
	require.Equal(t, "Basmati Rice", p.Name)
	require.Len(t, p.Batches, 1)
	require.InDelta(t, 25.5, p.TotalStock, 1e-9)
	require.InDelta(t, 90, p.AverageCost, 1e-9)
	require.InDelta(t, 90, p.CostHint(), 1e-9)
	require.Len(t, audit.logs, 1)
	require.Equal(t, shared.EventProductCreated, events.events[0].Type)
}

func TestCreateWithoutStockHasNoBatches(t *testing.T) {
	svc, _, _, _ := newTestService()
	p, err := svc.Create(context.Background(), CreateProductRequest{Name: "Soap", Price: 30})
	require.NoError(t, err)
	require.NotNil(t, p.Batches)
	require.Empty(t, p.Batches)
	require.Zero(t, p.AverageCost)
	require.InDelta(t, 30, p.CostHint(), 1e-9)
}

func TestCreateValidates(t *testing.T) {
	svc, repo, _, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateProductRequest{Name: "  ", Price: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "name")
	require.Contains(t, verr.Fields, "price")
	require.Empty(t, repo.products)
}

func TestRestockAppendsNewestBatch(t *testing.T) {
	svc, _, _, events := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, CreateProductRequest{Name: "Oil", Price: 200, InitialStock: 10, CostPrice: 150})
	require.NoError(t, err)

	p, err = svc.Restock(ctx, p.ID, RestockRequest{Quantity: 10, CostPrice: 170})
	require.NoError(t, err)
	require.Len(t, p.Batches, 2)
	require.InDelta(t, 150, p.Batches[0].CostPrice, 1e-9)
	require.InDelta(t, 170, p.Batches[1].CostPrice, 1e-9)
	require.InDelta(t, 160, p.AverageCost, 1e-9)
	require.InDelta(t, 170, p.LastCost, 1e-9)
	require.Equal(t, shared.EventStockChanged, events.events[len(events.events)-1].Type)
}

func TestWriteOffConsumesFIFOAndRejectsShortfall(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, CreateProductRequest{Name: "Sugar", Price: 50, InitialStock: 5, CostPrice: 10})
	require.NoError(t, err)
	_, err = svc.Restock(ctx, p.ID, RestockRequest{Quantity: 5, CostPrice: 20})
	require.NoError(t, err)

	p, err = svc.WriteOff(ctx, p.ID, WriteOffRequest{Quantity: 7, Reason: "spoiled"})
	require.NoError(t, err)
	require.Len(t, p.Batches, 1)
	require.InDelta(t, 3, p.TotalStock, 1e-9)
	require.InDelta(t, 20, p.AverageCost, 1e-9)

	_, err = svc.WriteOff(ctx, p.ID, WriteOffRequest{Quantity: 4})
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	var stockErr *ledger.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.InDelta(t, 3, stockErr.Shortfalls[0].Available, 1e-9)
	require.InDelta(t, 3, repo.products[p.ID].TotalStock, 1e-9)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, CreateProductRequest{Name: "Tea", Price: 100})
	require.NoError(t, err)

	price := 110.0
	cat := "beverages"
	p, err = svc.Update(ctx, p.ID, UpdateProductRequest{Price: &price, Category: &cat})
	require.NoError(t, err)
	require.InDelta(t, 110, p.Price, 1e-9)
	require.Equal(t, "beverages", p.Category)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, p.ID), shared.ErrNotFound)
}

func TestCategoriesDistinctSorted(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	for _, c := range []string{"spices", "grains", "", "spices"} {
		_, err := svc.Create(ctx, CreateProductRequest{Name: "item " + c, Price: 1, Category: c})
		require.NoError(t, err)
	}
	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"grains", "spices"}, cats)
}

func TestHandlerCreateValidationAndNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"","price":5}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"name":"is required"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Salt","price":20,"initial_stock":3,"cost_price":12}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"total_stock":3`)
}
