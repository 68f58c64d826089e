package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/observability"
	"github.com/ledgerpay/transfer/internal/repository"
)

// ReconciliationService verifies the double-entry invariant: ledger entries
// net to zero independently within each currency.
type ReconciliationService struct {
	store  TxRunner
	ledger *repository.LedgerRepo
}

func NewReconciliationService(store TxRunner, ledger *repository.LedgerRepo) *ReconciliationService {
	return &ReconciliationService{store: store, ledger: ledger}
}

// Run checks the per-currency nets and reports any imbalance. An imbalance
// is a reconciliation case, not an error return: the run itself succeeded.
func (s *ReconciliationService) Run(ctx context.Context) error {
	nets, err := s.ledger.NetByCurrency(ctx, s.store.DB())
	if err != nil {
		return err
	}

	balanced := true
	for _, net := range nets {
		if net.NetMinor != 0 {
			balanced = false
			observability.IncrementLedgerImbalance(net.Currency)
			zap.L().Error("ledger imbalance detected",
				zap.String("currency", net.Currency),
				zap.Int64("net_minor", net.NetMinor),
			)
		}
	}
	if balanced {
		zap.L().Info("ledger balanced", zap.Int("currencies", len(nets)))
	}
	return nil
}
