package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"go-ordersync/internal/config"
	"go-ordersync/internal/features/crm"
	"go-ordersync/internal/features/order"

	"go.uber.org/zap"
)

type SyncService interface {
	// RunCycle executes one full polling cycle: fetch, per-order upsert,
	// watermark advance. Only one cycle runs at a time; a concurrent call
	// waits for the in-flight cycle to finish before starting its own.
	RunCycle(ctx context.Context, trigger string) (*SyncLog, error)
	Status() Status
	ListLogs(ctx context.Context, limit int64) ([]SyncLog, error)
	ListFailedOrders(ctx context.Context, limit int64) ([]FailedOrder, error)
}

type SyncServiceImpl struct {
	orders       order.OrderService
	crm          crm.CrmService
	repo         SyncRepository
	logger       *zap.Logger
	pollInterval time.Duration

	runMu gosync.Mutex // held for the duration of a cycle

	stateMu   gosync.RWMutex // guards watermark, lastCycle, running
	watermark time.Time
	lastCycle *SyncLog
	running   bool

	now func() time.Time
}

func NewSyncService(
	cfg *config.Config,
	orders order.OrderService,
	crmService crm.CrmService,
	repo SyncRepository,
	logger *zap.Logger,
) SyncService {
	return &SyncServiceImpl{
		orders:       orders,
		crm:          crmService,
		repo:         repo,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		// Orders placed before process start are never fetched; accepted
		// restart behavior, not a bug
		watermark: time.Now().UTC(),
		now:       time.Now,
	}
}

func (s *SyncServiceImpl) RunCycle(ctx context.Context, trigger string) (*SyncLog, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.setRunning(true)
	defer s.setRunning(false)

	fetchIssuedAt := s.now().UTC()

	cycleLog := &SyncLog{
		StartTime: fetchIssuedAt,
		Status:    "in_progress",
		Trigger:   trigger,
	}
	if err := s.repo.CreateLog(ctx, cycleLog); err != nil {
		s.logger.Warn("Failed to create sync log entry", zap.Error(err))
	}

	s.logger.Info("Checking for new orders...", zap.Time("watermark", s.Watermark()))

	orders, err := s.orders.FetchOrdersSince(ctx, s.Watermark())
	if err != nil {
		// Fetch failure aborts the whole cycle; the watermark stays put so
		// the next tick retries the same window
		s.logger.Error("Failed to fetch orders, cycle aborted", zap.Error(err))
		cycleLog.Status = "failed"
		cycleLog.Error = err.Error()
		s.finalizeLog(ctx, cycleLog)
		return cycleLog, err
	}

	cycleLog.FetchedCount = len(orders)

	if len(orders) == 0 {
		s.logger.Info("No new orders found")
	} else {
		s.logger.Info("Found new orders to process", zap.Int("count", len(orders)))
	}

	for _, o := range orders {
		if err := s.processOrder(ctx, o); err != nil {
			cycleLog.FailedCount++
		} else {
			cycleLog.SucceededCount++
		}
	}

	// Advance only after every order was attempted, and always to the
	// fetch-issue instant: a crash mid-cycle re-delivers rather than skips
	s.advanceWatermark(fetchIssuedAt)

	cycleLog.Status = "success"
	s.finalizeLog(ctx, cycleLog)

	return cycleLog, nil
}

// processOrder runs the map → upsert contact → create deal pipeline for a
// single order. This is the per-order failure boundary: every error is
// reported and dead-lettered here, never propagated to sibling orders.
func (s *SyncServiceImpl) processOrder(ctx context.Context, o order.Order) error {
	s.logger.Info("Processing order",
		zap.Int("order_id", o.ID),
		zap.String("email", o.Billing.Email))

	contact := MapToContact(o)
	deal, err := MapToDeal(o)
	if err != nil {
		return s.reportFailure(ctx, o, StageMapping, err)
	}

	contactID, err := s.crm.UpsertContact(ctx, contact)
	if err != nil {
		return s.reportFailure(ctx, o, StageContactUpsert, err)
	}
	s.logger.Info("Contact created/updated", zap.String("contact_id", contactID))

	// Deal creation requires the resolved contact id
	deal.ContactName = &crm.ContactReference{ID: contactID}

	dealID, err := s.crm.CreateDeal(ctx, deal)
	if err != nil {
		return s.reportFailure(ctx, o, StageDealCreate, err)
	}

	s.logger.Info("Successfully processed order",
		zap.Int("order_id", o.ID),
		zap.String("deal_id", dealID))

	return nil
}

func (s *SyncServiceImpl) reportFailure(ctx context.Context, o order.Order, stage string, cause error) error {
	s.logger.Error("Failed to process order",
		zap.Int("order_id", o.ID),
		zap.String("stage", stage),
		zap.Error(cause))

	failed := &FailedOrder{
		OrderID:   o.ID,
		Email:     o.Billing.Email,
		Stage:     stage,
		Error:     cause.Error(),
		Order:     o,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.CreateFailedOrder(ctx, failed); err != nil {
		s.logger.Warn("Failed to record dead-letter entry",
			zap.Int("order_id", o.ID),
			zap.Error(err))
	}

	return fmt.Errorf("order %d failed at %s: %w", o.ID, stage, cause)
}

func (s *SyncServiceImpl) finalizeLog(ctx context.Context, cycleLog *SyncLog) {
	cycleLog.EndTime = s.now().UTC()
	if err := s.repo.UpdateLog(ctx, cycleLog); err != nil {
		s.logger.Warn("Failed to update sync log entry", zap.Error(err))
	}

	s.stateMu.Lock()
	s.lastCycle = cycleLog
	s.stateMu.Unlock()
}

// Watermark returns the instant up to which orders are considered processed
func (s *SyncServiceImpl) Watermark() time.Time {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.watermark
}

func (s *SyncServiceImpl) advanceWatermark(t time.Time) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	// Monotonic: never move backwards
	if t.After(s.watermark) {
		s.watermark = t
	}
}

func (s *SyncServiceImpl) setRunning(v bool) {
	s.stateMu.Lock()
	s.running = v
	s.stateMu.Unlock()
}

func (s *SyncServiceImpl) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return Status{
		Watermark:    s.watermark,
		PollInterval: s.pollInterval.String(),
		CycleRunning: s.running,
		LastCycle:    s.lastCycle,
	}
}

func (s *SyncServiceImpl) ListLogs(ctx context.Context, limit int64) ([]SyncLog, error) {
	return s.repo.ListLogs(ctx, limit)
}

func (s *SyncServiceImpl) ListFailedOrders(ctx context.Context, limit int64) ([]FailedOrder, error) {
	return s.repo.ListFailedOrders(ctx, limit)
}
