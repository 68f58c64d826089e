package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/observability"
	"github.com/ledgerpay/transfer/internal/repository"
)

// HoldMaintenanceService sweeps overdue active holds to expired. This is
// the only writer to hold status other than the transfer engine itself.
type HoldMaintenanceService struct {
	store TxRunner
	holds *repository.HoldRepo
}

func NewHoldMaintenanceService(store TxRunner, holds *repository.HoldRepo) *HoldMaintenanceService {
	return &HoldMaintenanceService{store: store, holds: holds}
}

// Sweep flips every overdue active hold to expired and returns the count.
// Idempotent: re-running after a partial failure is safe.
func (s *HoldMaintenanceService) Sweep(ctx context.Context) (int64, error) {
	count, err := s.holds.SweepExpired(ctx, s.store.DB())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		observability.AddExpiredHolds(count)
		zap.L().Info("expired overdue holds", zap.Int64("count", count))
	}
	return count, nil
}
