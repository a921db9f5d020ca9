package worker

import (
	"context"
	"errors"
	"time"

	"github.com/kalakart-next/internal/config"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/provider"
)

const (
	defaultSettlementInterval = time.Minute
	defaultPayoutInterval     = 5 * time.Minute
	defaultReconcileInterval  = time.Minute
)

// Scheduler 定时结算与打款服务
// 不依赖队列开关，结算冻结期到期、批量打款与打款对账始终由本服务驱动。
type Scheduler struct {
	container          *provider.Container
	settlementInterval time.Duration
	payoutInterval     time.Duration
	reconcileInterval  time.Duration
}

// NewScheduler 创建定时服务
func NewScheduler(cfg *config.Config, c *provider.Container) (*Scheduler, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if c == nil {
		return nil, errors.New("container is nil")
	}
	return &Scheduler{
		container:          c,
		settlementInterval: intervalOrDefault(cfg.Payments.SettlementIntervalSeconds, defaultSettlementInterval),
		payoutInterval:     intervalOrDefault(cfg.Payouts.ScheduleIntervalSeconds, defaultPayoutInterval),
		reconcileInterval:  intervalOrDefault(cfg.Payouts.ReconcileIntervalSeconds, defaultReconcileInterval),
	}, nil
}

func intervalOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Start 启动服务
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil || s.container == nil {
		return errors.New("scheduler not initialized")
	}
	go s.runSettlementLoop(ctx)
	go s.runPayoutLoop(ctx)
	go s.runReconcileLoop(ctx)
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Scheduler) Stop(ctx context.Context) error {
	_ = ctx
	return nil
}

func (s *Scheduler) runSettlementLoop(ctx context.Context) {
	if s.container.PaymentService == nil {
		return
	}
	runOnce := func() {
		settled, err := s.container.PaymentService.SettleDueSplits(time.Now())
		if err != nil {
			logger.Warnw("scheduler_settle_due_splits_failed", "error", err)
			return
		}
		if settled > 0 {
			logger.Infow("scheduler_splits_settled", "count", settled)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.settlementInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Scheduler) runPayoutLoop(ctx context.Context) {
	if s.container.PayoutService == nil {
		return
	}
	runOnce := func() {
		processed, err := s.container.PayoutService.ProcessDuePayouts(ctx, time.Now())
		if err != nil {
			logger.Warnw("scheduler_process_due_payouts_failed", "error", err)
			return
		}
		if processed > 0 {
			logger.Infow("scheduler_payouts_processed", "count", processed)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.payoutInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Scheduler) runReconcileLoop(ctx context.Context) {
	if s.container.PayoutService == nil {
		return
	}
	runOnce := func() {
		reconciled, err := s.container.PayoutService.ReconcileProcessingPayouts(ctx)
		if err != nil {
			logger.Warnw("scheduler_reconcile_payouts_failed", "error", err)
			return
		}
		if reconciled > 0 {
			logger.Infow("scheduler_payouts_reconciled", "count", reconciled)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
