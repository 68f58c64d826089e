package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
)

// TransactionRepo persists transfer attempts and their FX legs.
type TransactionRepo struct{}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{}
}

// Create inserts a transaction row. The unique constraint on
// idempotency_key enforces at-most-one logical transfer per key.
func (r *TransactionRepo) Create(ctx context.Context, q DB, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, idempotency_key, type, status, from_account_id, to_account_id, amount_minor, currency, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	if _, err := q.Exec(ctx, query,
		txn.ID, txn.IdempotencyKey, txn.Type, txn.Status,
		txn.FromAccountID, txn.ToAccountID, txn.AmountMinor, txn.Currency, txn.Metadata,
	); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// SetStatus transitions a transaction.
func (r *TransactionRepo) SetStatus(ctx context.Context, q DB, txnID uuid.UUID, status string) error {
	query := `UPDATE transactions SET status = $2 WHERE id = $1`
	tag, err := q.Exec(ctx, query, txnID, status)
	if err != nil {
		return fmt.Errorf("set transaction status: %w", err)
	}
	return requireExactlyOne(tag, "set transaction status")
}

// Upsert writes the transaction with its final status, inserting the audit
// row if the original transaction never committed. Idempotent for safe
// compensation retries.
func (r *TransactionRepo) Upsert(ctx context.Context, q DB, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, idempotency_key, type, status, from_account_id, to_account_id, amount_minor, currency, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`
	if _, err := q.Exec(ctx, query,
		txn.ID, txn.IdempotencyKey, txn.Type, txn.Status,
		txn.FromAccountID, txn.ToAccountID, txn.AmountMinor, txn.Currency, txn.Metadata,
	); err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// FindCompletedByKey looks up a completed transfer by idempotency key.
// Returns (nil, nil) when no completed transfer exists for the key.
func (r *TransactionRepo) FindCompletedByKey(ctx context.Context, q DB, key string) (*models.TransferResult, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount_minor, currency
		FROM transactions
		WHERE idempotency_key = $1 AND status = $2
	`
	res := &models.TransferResult{}
	err := q.QueryRow(ctx, query, key, domain.TxStatusCompleted).Scan(
		&res.TransferID, &res.FromAccountID, &res.ToAccountID, &res.AmountMinor, &res.Currency,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction by idempotency key: %w", err)
	}
	return res, nil
}

// InsertFx records the FX leg of a cross-currency transfer; at most one per
// transaction (unique on transaction_id).
func (r *TransactionRepo) InsertFx(ctx context.Context, q DB, fx *models.FxTransaction) error {
	query := `
		INSERT INTO fx_transactions (id, transaction_id, base_amount_minor, base_currency, quote_amount_minor, quote_currency, rate, spread, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	if _, err := q.Exec(ctx, query,
		fx.ID, fx.TransactionID, fx.BaseAmountMinor, fx.BaseCurrency,
		fx.QuoteAmountMinor, fx.QuoteCurrency, fx.Rate, fx.Spread,
	); err != nil {
		return fmt.Errorf("insert fx transaction: %w", err)
	}
	return nil
}
