package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/repository"
)

// TxRunner scopes a unit of work to one database transaction.
// *repository.Store is the production implementation.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	DB() repository.DB
}

// AccountStore loads accounts with a derived available balance.
type AccountStore interface {
	Get(ctx context.Context, q repository.DB, id uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, q repository.DB, id uuid.UUID) (*domain.Account, error)
}

// HoldStore manages fund reservations.
type HoldStore interface {
	Create(ctx context.Context, q repository.DB, hold *models.Hold) error
	SetStatus(ctx context.Context, q repository.DB, holdID uuid.UUID, status string) error
	Upsert(ctx context.Context, q repository.DB, hold *models.Hold) error
}

// LedgerStore appends immutable entries.
type LedgerStore interface {
	Insert(ctx context.Context, q repository.DB, entry *models.LedgerEntry) error
}

// TransactionStore persists transfer attempts and FX legs.
type TransactionStore interface {
	Create(ctx context.Context, q repository.DB, txn *models.Transaction) error
	SetStatus(ctx context.Context, q repository.DB, txnID uuid.UUID, status string) error
	Upsert(ctx context.Context, q repository.DB, txn *models.Transaction) error
	FindCompletedByKey(ctx context.Context, q repository.DB, key string) (*models.TransferResult, error)
	InsertFx(ctx context.Context, q repository.DB, fx *models.FxTransaction) error
}

// IdempotencyStore caches transfer results per idempotency key. It is an
// optimization over the storage-level unique constraint, not the source of
// truth.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*models.TransferResult, error)
	Set(ctx context.Context, key string, result *models.TransferResult) error
}

// ExchangeRateProvider quotes and converts between currencies. Conversion
// rounding policy is owned entirely by the provider.
type ExchangeRateProvider interface {
	Rate(ctx context.Context, sourceCurrency, targetCurrency string) (decimal.Decimal, error)
	Convert(ctx context.Context, amount domain.Money, targetCurrency string) (domain.Money, error)
}
