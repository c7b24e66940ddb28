package invoices

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/customers"
	"github.com/odyssey-erp/shopdesk/internal/orders"
	"github.com/odyssey-erp/shopdesk/internal/settings"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	counter  int64
	invoices map[string]Invoice
}

func newMemoryRepo(start int64) *memoryRepo {
	return &memoryRepo{counter: start, invoices: make(map[string]Invoice)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]Invoice, len(m.invoices))
	for k, v := range m.invoices {
		snapshot[k] = v
	}
	if err := fn(ctx, memoryTx{m}); err != nil {
		m.invoices = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) NextSequence(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.counter, nil
}

func (m *memoryRepo) Insert(_ context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invoices {
		if existing.OrderID == inv.OrderID {
			return ErrInvoiceExists
		}
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryRepo) GetByOrder(_ context.Context, orderID string) (Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.OrderID == orderID {
			return inv, nil
		}
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (m *memoryRepo) List(_ context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.invoices {
		if req.PaidStatus != "" && inv.PaidStatus != req.PaidStatus {
			continue
		}
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Open(ctx context.Context) ([]Invoice, error) {
	all, _, _ := m.List(ctx, ListInvoicesRequest{})
	var out []Invoice
	for _, inv := range all {
		if inv.PaidStatus != StatusPaid {
			out = append(out, inv)
		}
	}
	return out, nil
}

type memoryTx struct{ m *memoryRepo }

func (t memoryTx) GetForUpdate(_ context.Context, id string) (Invoice, error) {
	inv, ok := t.m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (t memoryTx) Replace(_ context.Context, inv Invoice) error {
	t.m.invoices[inv.ID] = inv
	return nil
}

type orderStub map[string]orders.Order

func (o orderStub) Get(_ context.Context, id string) (orders.Order, error) {
	order, ok := o[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return order, nil
}

type customerStub map[string]customers.Customer

func (c customerStub) Get(_ context.Context, id string) (customers.Customer, error) {
	cust, ok := c[id]
	if !ok {
		return customers.Customer{}, customers.ErrCustomerNotFound
	}
	return cust, nil
}

type settingsStub settings.CompanySettings

func (s settingsStub) Get(context.Context) (settings.CompanySettings, error) {
	return settings.CompanySettings(s), nil
}

type rendererSpy struct{ docs []Document }

func (r *rendererSpy) RenderInvoice(_ context.Context, doc Document) ([]byte, error) {
	r.docs = append(r.docs, doc)
	return []byte("%PDF-1.7"), nil
}

type eventSpy struct {
	mu     sync.Mutex
	events []shared.Event
}

func (e *eventSpy) Publish(_ context.Context, evt shared.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func sampleOrder(id string, price, qty float64) orders.Order {
	shipping := 50.0
	o := orders.Order{
		ID:           id,
		CustomerID:   "c1",
		CustomerName: "Asha Traders",
		Items:        []orders.Item{{ProductID: "p1", Name: "Rice", Price: price, OriginalPrice: price, Quantity: qty}},
		ShippingCost: &shipping,
		Status:       orders.StatusPending,
	}
	o.Recalculate()
	return o
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	orders   orderStub
	renderer *rendererSpy
	events   *eventSpy
}

func newFixture(start int64) fixture {
	repo := newMemoryRepo(start)
	ords := orderStub{"o1": sampleOrder("o1", 250, 2)}
	company := settings.Defaults()
	company.Name = "Sharma Stores"
	renderer := &rendererSpy{}
	events := &eventSpy{}
	svc := NewService(repo, ServiceDeps{
		Orders:    ords,
		Customers: customerStub{"c1": {ID: "c1", Name: "Asha Traders", City: "Pune", GSTIN: "27AAPFU0939F1ZV"}},
		Settings:  settingsStub(company),
		Renderer:  renderer,
		Events:    events,
	})
	return fixture{svc: svc, repo: repo, orders: ords, renderer: renderer, events: events}
}

func TestCreateSnapshotsOrder(t *testing.T) {
	f := newFixture(41)
	inv, created, err := f.svc.Create(context.Background(), "o1")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "INV-0042", inv.Number)
	require.EqualValues(t, 42, inv.Sequence)
	require.Equal(t, StatusUnpaid, inv.PaidStatus)
	require.Zero(t, inv.AmountPaid)
	require.InDelta(t, 550, inv.Total, 1e-9)
	require.InDelta(t, 0.05, inv.TaxRate, 1e-9)
	require.Equal(t, "27AAPFU0939F1ZV", inv.Customer.GSTIN)
	require.Len(t, inv.Items, 1)
	require.Equal(t, shared.EventInvoiceCreated, f.events.events[0].Type)

	// order edits after issue do not touch the snapshot
	f.orders["o1"] = sampleOrder("o1", 999, 9)
	again, created, err := f.svc.Create(context.Background(), "o1")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, inv.ID, again.ID)
	require.InDelta(t, 550, again.Total, 1e-9)
	require.EqualValues(t, 42, f.repo.counter)
}

func TestCreateMissingOrder(t *testing.T) {
	f := newFixture(0)
	_, _, err := f.svc.Create(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Zero(t, f.repo.counter)
}

func TestConcurrentCreateNumbersAreUnique(t *testing.T) {
	f := newFixture(7)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("o-%02d", i)
		f.orders[id] = sampleOrder(id, 10, 1)
	}
	var wg sync.WaitGroup
	numbers := make([]int64, 20)
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, _, err := f.svc.Create(context.Background(), fmt.Sprintf("o-%02d", i))
			numbers[i], errs[i] = inv.Sequence, err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		require.EqualValues(t, 8+i, n)
	}
}

func TestConcurrentCreateSameOrderYieldsOneInvoice(t *testing.T) {
	f := newFixture(0)
	var wg sync.WaitGroup
	ids := make([]string, 10)
	errs := make([]error, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, _, err := f.svc.Create(context.Background(), "o1")
			ids[i], errs[i] = inv.ID, err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, f.repo.invoices, 1)
	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
}

func TestPaymentStatusInvariants(t *testing.T) {
	f := newFixture(0)
	ctx := shared.ContextWithActor(context.Background(), "admin@shop")
	inv, _, err := f.svc.Create(ctx, "o1")
	require.NoError(t, err)

	_, err = f.svc.UpdatePaymentStatus(ctx, inv.ID, PaymentStatusRequest{PaidStatus: StatusPartiallyPaid})
	require.ErrorIs(t, err, shared.ErrValidation)
	over := 550.0
	_, err = f.svc.UpdatePaymentStatus(ctx, inv.ID, PaymentStatusRequest{PaidStatus: StatusPartiallyPaid, AmountPaid: &over})
	require.ErrorIs(t, err, shared.ErrValidation)

	part := 200.0
	inv, err = f.svc.UpdatePaymentStatus(ctx, inv.ID, PaymentStatusRequest{PaidStatus: StatusPartiallyPaid, AmountPaid: &part, Method: "upi"})
	require.NoError(t, err)
	require.InDelta(t, 200, inv.AmountPaid, 1e-9)
	require.InDelta(t, 350, inv.Due(), 1e-9)

	inv, err = f.svc.UpdatePaymentStatus(ctx, inv.ID, PaymentStatusRequest{PaidStatus: StatusPaid})
	require.NoError(t, err)
	require.InDelta(t, inv.Total, inv.AmountPaid, 1e-9)
	require.Zero(t, inv.Due())

	inv, err = f.svc.UpdatePaymentStatus(ctx, inv.ID, PaymentStatusRequest{PaidStatus: StatusUnpaid, Note: "cheque bounced"})
	require.NoError(t, err)
	require.Zero(t, inv.AmountPaid)

	require.Len(t, inv.PaymentHistory, 3)
	require.InDelta(t, 200, inv.PaymentHistory[0].Delta, 1e-9)
	require.InDelta(t, 350, inv.PaymentHistory[1].Delta, 1e-9)
	require.InDelta(t, -550, inv.PaymentHistory[2].Delta, 1e-9)
	require.Equal(t, "admin@shop", inv.PaymentHistory[0].RecordedBy)
}

func TestAddPaymentDerivesStatus(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	inv, _, err := f.svc.Create(ctx, "o1")
	require.NoError(t, err)

	_, err = f.svc.AddPayment(ctx, inv.ID, AddPaymentRequest{Amount: 0.004})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, StatusUnpaid, f.repo.invoices[inv.ID].PaidStatus)
	require.Empty(t, f.repo.invoices[inv.ID].PaymentHistory)

	inv, err = f.svc.AddPayment(ctx, inv.ID, AddPaymentRequest{Amount: 500})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, inv.PaidStatus)

	_, err = f.svc.AddPayment(ctx, inv.ID, AddPaymentRequest{Amount: 60})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.InDelta(t, 500, f.repo.invoices[inv.ID].AmountPaid, 1e-9)

	inv, err = f.svc.AddPayment(ctx, inv.ID, AddPaymentRequest{Amount: 50, Method: "cash"})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, inv.PaidStatus)
	require.InDelta(t, 550, inv.AmountPaid, 1e-9)
	require.Len(t, inv.PaymentHistory, 2)

	open, err := f.svc.OpenInvoices(ctx)
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestExistsForOrder(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	ok, err := f.svc.ExistsForOrder(ctx, "o1")
	require.NoError(t, err)
	require.False(t, ok)
	_, _, err = f.svc.Create(ctx, "o1")
	require.NoError(t, err)
	ok, err = f.svc.ExistsForOrder(ctx, "o1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRenderPDFPassesDocument(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	inv, _, err := f.svc.Create(ctx, "o1")
	require.NoError(t, err)

	data, got, err := f.svc.RenderPDF(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(data))
	require.Equal(t, inv.Number, got.Number)
	require.Len(t, f.renderer.docs, 1)
	doc := f.renderer.docs[0]
	require.Equal(t, "Sharma Stores", doc.Company.Name)
	require.Equal(t, "Rupees Five Hundred Fifty Only", doc.Words)
	require.Equal(t, "23.81", Money(doc.Breakdown.TotalTax))
	require.Equal(t, "11.91", Money(doc.Breakdown.CGST))
}

func TestHandlerCreateAndPayment(t *testing.T) {
	f := newFixture(0)
	r := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/o1/invoice", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"number":"INV-0001"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/o1/invoice", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	inv, err := f.svc.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoices/"+inv.ID+"/payments", strings.NewReader(`{"amount":1000}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoices/"+inv.ID+"/breakdown", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"amount_in_words":"Rupees Five Hundred Fifty Only"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoices/"+inv.ID+"/pdf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "INV-0007", FormatNumber("INV", 7))
	require.Equal(t, "SS-12345", FormatNumber("SS", 12345))
}
