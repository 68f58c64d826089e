package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/observability"
	"github.com/ledgerpay/transfer/internal/service"
)

// HoldExpiryWorker periodically sweeps overdue active holds to expired,
// freeing reserved amounts that no transfer will ever capture or release.
type HoldExpiryWorker struct {
	svc      *service.HoldMaintenanceService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewHoldExpiryWorker(svc *service.HoldMaintenanceService) *HoldExpiryWorker {
	return &HoldExpiryWorker{
		svc:      svc,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *HoldExpiryWorker) WithInterval(interval time.Duration) *HoldExpiryWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *HoldExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("hold expiry worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("hold expiry worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("hold expiry worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *HoldExpiryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *HoldExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *HoldExpiryWorker) runOnce(ctx context.Context) {
	if _, err := w.svc.Sweep(ctx); err != nil {
		observability.IncrementWorkerRun("hold_expiry", "failed")
		zap.L().Error("hold sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("hold_expiry", "success")
}
