package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-ordersync/internal/features/crm"
	"go-ordersync/internal/features/order"

	"go.uber.org/zap"
)

type fakeOrderService struct {
	orders    []order.Order
	err       error
	lastSince time.Time
}

func (f *fakeOrderService) FetchOrdersSince(ctx context.Context, since time.Time) ([]order.Order, error) {
	f.lastSince = since
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type fakeCrmService struct {
	contactsByEmail map[string]string
	nextID          int
	failEmail       string
	deals           []crm.Deal
}

func newFakeCrmService() *fakeCrmService {
	return &fakeCrmService{
		contactsByEmail: make(map[string]string),
		nextID:          100,
	}
}

func (f *fakeCrmService) UpsertContact(ctx context.Context, contact crm.Contact) (string, error) {
	if contact.Email == f.failEmail {
		return "", &crm.APIError{Op: "contact create", StatusCode: 500}
	}
	if id, ok := f.contactsByEmail[contact.Email]; ok {
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("contact-%d", f.nextID)
	f.contactsByEmail[contact.Email] = id
	return id, nil
}

func (f *fakeCrmService) CreateDeal(ctx context.Context, deal crm.Deal) (string, error) {
	f.deals = append(f.deals, deal)
	return fmt.Sprintf("deal-%d", len(f.deals)), nil
}

type memRepo struct {
	logs     []*SyncLog
	failures []*FailedOrder
}

func (r *memRepo) CreateLog(ctx context.Context, log *SyncLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *memRepo) UpdateLog(ctx context.Context, log *SyncLog) error {
	return nil
}

func (r *memRepo) ListLogs(ctx context.Context, limit int64) ([]SyncLog, error) {
	out := make([]SyncLog, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, *l)
	}
	return out, nil
}

func (r *memRepo) CreateFailedOrder(ctx context.Context, failed *FailedOrder) error {
	r.failures = append(r.failures, failed)
	return nil
}

func (r *memRepo) ListFailedOrders(ctx context.Context, limit int64) ([]FailedOrder, error) {
	out := make([]FailedOrder, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, *f)
	}
	return out, nil
}

func testOrder(id int, email, total string) order.Order {
	return order.Order{
		ID:          id,
		DateCreated: "2024-01-01T00:00:00",
		Total:       total,
		Billing: order.BillingDetails{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     email,
		},
		LineItems: []order.LineItem{{Name: "Widget", Quantity: 1, Total: total}},
	}
}

func newTestEngine(orders *fakeOrderService, crmSvc *fakeCrmService, repo *memRepo, start time.Time) *SyncServiceImpl {
	current := start
	return &SyncServiceImpl{
		orders:       orders,
		crm:          crmSvc,
		repo:         repo,
		logger:       zap.NewNop(),
		pollInterval: 90 * time.Second,
		watermark:    start,
		now:          func() time.Time { return current },
	}
}

func TestRunCyclePerOrderIsolation(t *testing.T) {
	orders := &fakeOrderService{orders: []order.Order{
		testOrder(1, "one@example.com", "10.00"),
		testOrder(2, "two@example.com", "N/A"),
		testOrder(3, "three@example.com", "30.00"),
	}}
	crmSvc := newFakeCrmService()
	repo := &memRepo{}

	engine := newTestEngine(orders, crmSvc, repo, time.Now().UTC())

	cycleLog, err := engine.RunCycle(context.Background(), "manual")
	if err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}

	if cycleLog.FetchedCount != 3 || cycleLog.SucceededCount != 2 || cycleLog.FailedCount != 1 {
		t.Errorf("counts = fetched %d, ok %d, failed %d; want 3/2/1",
			cycleLog.FetchedCount, cycleLog.SucceededCount, cycleLog.FailedCount)
	}

	// Orders 1 and 3 made it to the CRM despite order 2 failing to map
	if _, ok := crmSvc.contactsByEmail["one@example.com"]; !ok {
		t.Error("order 1 contact was not upserted")
	}
	if _, ok := crmSvc.contactsByEmail["three@example.com"]; !ok {
		t.Error("order 3 contact was not upserted")
	}
	if _, ok := crmSvc.contactsByEmail["two@example.com"]; ok {
		t.Error("order 2 should have failed before the contact upsert")
	}

	if len(repo.failures) != 1 {
		t.Fatalf("dead-letter entries = %d, want 1", len(repo.failures))
	}
	failed := repo.failures[0]
	if failed.OrderID != 2 || failed.Stage != StageMapping {
		t.Errorf("dead letter = order %d stage %q, want order 2 stage %q",
			failed.OrderID, failed.Stage, StageMapping)
	}
}

func TestRunCycleDealLinkage(t *testing.T) {
	orders := &fakeOrderService{orders: []order.Order{
		testOrder(123, "jane@example.com", "49.99"),
	}}
	crmSvc := newFakeCrmService()
	repo := &memRepo{}

	engine := newTestEngine(orders, crmSvc, repo, time.Now().UTC())

	if _, err := engine.RunCycle(context.Background(), "schedule"); err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}

	if len(crmSvc.deals) != 1 {
		t.Fatalf("deals created = %d, want 1", len(crmSvc.deals))
	}
	deal := crmSvc.deals[0]
	if deal.ContactName == nil {
		t.Fatal("deal submitted without contact reference")
	}
	wantID := crmSvc.contactsByEmail["jane@example.com"]
	if deal.ContactName.ID != wantID {
		t.Errorf("deal contact id = %q, want %q", deal.ContactName.ID, wantID)
	}
}

func TestRunCycleAdvancesWatermark(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	orders := &fakeOrderService{orders: []order.Order{
		testOrder(1, "fail@example.com", "10.00"),
	}}
	crmSvc := newFakeCrmService()
	crmSvc.failEmail = "fail@example.com"
	repo := &memRepo{}

	engine := newTestEngine(orders, crmSvc, repo, start)
	later := start.Add(90 * time.Second)
	engine.now = func() time.Time { return later }

	if _, err := engine.RunCycle(context.Background(), "schedule"); err != nil {
		t.Fatalf("RunCycle() error: %v", err)
	}

	// The fetch used the pre-cycle watermark
	if !orders.lastSince.Equal(start) {
		t.Errorf("fetch since = %v, want %v", orders.lastSince, start)
	}

	// Watermark advanced to the fetch-issue instant even though every order
	// in the cycle failed
	if !engine.Watermark().Equal(later) {
		t.Errorf("watermark = %v, want %v", engine.Watermark(), later)
	}
}

func TestWatermarkMonotonic(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(&fakeOrderService{}, newFakeCrmService(), &memRepo{}, start)

	engine.advanceWatermark(start.Add(-time.Hour))
	if !engine.Watermark().Equal(start) {
		t.Errorf("watermark moved backwards to %v", engine.Watermark())
	}

	next := start.Add(time.Minute)
	engine.advanceWatermark(next)
	if !engine.Watermark().Equal(next) {
		t.Errorf("watermark = %v, want %v", engine.Watermark(), next)
	}
}

func TestRunCycleFetchFailure(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	orders := &fakeOrderService{err: &order.SourceAPIError{Op: "fetch orders", StatusCode: 503}}
	repo := &memRepo{}

	engine := newTestEngine(orders, newFakeCrmService(), repo, start)
	engine.now = func() time.Time { return start.Add(90 * time.Second) }

	cycleLog, err := engine.RunCycle(context.Background(), "schedule")
	if err == nil {
		t.Fatal("expected error from failed fetch")
	}
	if cycleLog.Status != "failed" {
		t.Errorf("cycle status = %q, want failed", cycleLog.Status)
	}

	// Watermark untouched: the next tick retries the same window
	if !engine.Watermark().Equal(start) {
		t.Errorf("watermark = %v, want unchanged %v", engine.Watermark(), start)
	}
}
