package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
)

// LedgerRepo reads and appends immutable ledger entries. Entries are never
// updated or deleted; corrections are new entries.
type LedgerRepo struct{}

func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{}
}

// Balance computes the settled balance as credits minus debits for one
// account and currency. No entries yields zero. Safe inside or outside a
// lock.
func (r *LedgerRepo) Balance(ctx context.Context, q DB, accountID uuid.UUID, currency string) (domain.Money, error) {
	if err := domain.ValidateCurrency(currency); err != nil {
		return domain.Money{}, err
	}

	query := `
		SELECT COALESCE(SUM(CASE WHEN side = $3 THEN amount_minor ELSE -amount_minor END), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND currency = $2
	`
	var sumMinor int64
	if err := q.QueryRow(ctx, query, accountID, currency, domain.SideCredit).Scan(&sumMinor); err != nil {
		return domain.Money{}, fmt.Errorf("ledger balance for account %s: %w", accountID, err)
	}
	return domain.Money{AmountMinor: sumMinor, Currency: currency}, nil
}

// Insert appends one entry.
func (r *LedgerRepo) Insert(ctx context.Context, q DB, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, transaction_id, account_id, side, amount_minor, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	if _, err := q.Exec(ctx, query,
		entry.ID, entry.TransactionID, entry.AccountID, entry.Side, entry.AmountMinor, entry.Currency,
	); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Entries lists an account's entries newest first, for statements.
func (r *LedgerRepo) Entries(ctx context.Context, q DB, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, transaction_id, account_id, side, amount_minor, currency, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.Side, &e.AmountMinor, &e.Currency, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CurrencyNet holds the signed ledger sum for one currency.
type CurrencyNet struct {
	Currency string
	NetMinor int64
}

// NetByCurrency returns the net signed sum of all entries per currency.
// A balanced ledger nets to zero in every currency.
func (r *LedgerRepo) NetByCurrency(ctx context.Context, q DB) ([]CurrencyNet, error) {
	query := `
		SELECT currency, COALESCE(SUM(CASE WHEN side = $1 THEN amount_minor ELSE -amount_minor END), 0)
		FROM ledger_entries
		GROUP BY currency
	`
	rows, err := q.Query(ctx, query, domain.SideCredit)
	if err != nil {
		return nil, fmt.Errorf("ledger net by currency: %w", err)
	}
	defer rows.Close()

	var nets []CurrencyNet
	for rows.Next() {
		var n CurrencyNet
		if err := rows.Scan(&n.Currency, &n.NetMinor); err != nil {
			return nil, fmt.Errorf("scan ledger net: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, rows.Err()
}
