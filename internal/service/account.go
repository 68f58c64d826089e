package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/repository"
)

// AccountService serves non-locking account reads.
type AccountService struct {
	store    TxRunner
	accounts AccountStore
	ledger   *repository.LedgerRepo
}

func NewAccountService(store TxRunner, accounts AccountStore, ledger *repository.LedgerRepo) *AccountService {
	return &AccountService{store: store, accounts: accounts, ledger: ledger}
}

// GetBalance loads the account with its derived available balance.
func (s *AccountService) GetBalance(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.accounts.Get(ctx, s.store.DB(), accountID)
}

// GetStatement pages through an account's ledger entries, newest first.
func (s *AccountService) GetStatement(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.LedgerEntry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	return s.ledger.Entries(ctx, s.store.DB(), accountID, pageSize, offset)
}
