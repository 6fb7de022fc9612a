package sync

import (
	"context"
	"fmt"

	"go-ordersync/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives the polling loop on a fixed interval. Started and
// stopped through the Fx lifecycle; Stop waits for an in-flight cycle to
// finish its orders before returning.
type Scheduler struct {
	service  SyncService
	interval string
	logger   *zap.Logger

	scheduler *cron.Cron
}

func NewScheduler(cfg *config.Config, service SyncService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: fmt.Sprintf("@every %s", cfg.PollInterval),
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting sync scheduler", zap.String("interval", s.interval))

	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc(s.interval, s.tick); err != nil {
		return fmt.Errorf("failed to register sync schedule: %w", err)
	}

	s.scheduler.Start()
	return nil
}

func (s *Scheduler) tick() {
	// Failures are already logged and dead-lettered inside the engine;
	// the scheduler only keeps ticking
	if _, err := s.service.RunCycle(context.Background(), "schedule"); err != nil {
		s.logger.Warn("Sync cycle finished with error", zap.Error(err))
	}
}

func (s *Scheduler) Stop() error {
	if s.scheduler != nil {
		ctx := s.scheduler.Stop()
		<-ctx.Done()
	}
	s.logger.Info("Sync scheduler stopped")
	return nil
}
