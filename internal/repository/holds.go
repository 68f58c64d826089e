package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
)

// HoldRepo manages reservations against accounts.
type HoldRepo struct{}

func NewHoldRepo() *HoldRepo {
	return &HoldRepo{}
}

// ActiveSum returns the total of active, non-overdue holds for the
// account/currency pair; zero if none.
func (r *HoldRepo) ActiveSum(ctx context.Context, q DB, accountID uuid.UUID, currency string) (domain.Money, error) {
	if err := domain.ValidateCurrency(currency); err != nil {
		return domain.Money{}, err
	}

	query := `
		SELECT COALESCE(SUM(amount_minor), 0)
		FROM holds
		WHERE account_id = $1 AND currency = $2 AND status = $3
		  AND (expires_at IS NULL OR expires_at > NOW())
	`
	var sumMinor int64
	if err := q.QueryRow(ctx, query, accountID, currency, domain.HoldStatusActive).Scan(&sumMinor); err != nil {
		return domain.Money{}, fmt.Errorf("active holds sum for account %s: %w", accountID, err)
	}
	return domain.Money{AmountMinor: sumMinor, Currency: currency}, nil
}

// Create inserts a new hold row.
func (r *HoldRepo) Create(ctx context.Context, q DB, hold *models.Hold) error {
	query := `
		INSERT INTO holds (id, account_id, amount_minor, currency, status, reason, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	if _, err := q.Exec(ctx, query,
		hold.ID, hold.AccountID, hold.AmountMinor, hold.Currency, hold.Status, hold.Reason, hold.ExpiresAt,
	); err != nil {
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

// SetStatus transitions a hold. Terminal holds are never updated again.
func (r *HoldRepo) SetStatus(ctx context.Context, q DB, holdID uuid.UUID, status string) error {
	query := `UPDATE holds SET status = $2 WHERE id = $1`
	tag, err := q.Exec(ctx, query, holdID, status)
	if err != nil {
		return fmt.Errorf("set hold status: %w", err)
	}
	return requireExactlyOne(tag, "set hold status")
}

// Upsert writes the hold with its final status, inserting the row if the
// original transaction never committed it. Safe to retry: the compensating
// write relies on this being idempotent.
func (r *HoldRepo) Upsert(ctx context.Context, q DB, hold *models.Hold) error {
	query := `
		INSERT INTO holds (id, account_id, amount_minor, currency, status, reason, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`
	if _, err := q.Exec(ctx, query,
		hold.ID, hold.AccountID, hold.AmountMinor, hold.Currency, hold.Status, hold.Reason, hold.ExpiresAt,
	); err != nil {
		return fmt.Errorf("upsert hold: %w", err)
	}
	return nil
}

// SweepExpired flips every active hold whose reservation window has elapsed
// to expired, in one statement, and returns the number changed. Idempotent;
// invoked by the hold-expiry worker.
func (r *HoldRepo) SweepExpired(ctx context.Context, q DB) (int64, error) {
	query := `
		UPDATE holds SET status = $1
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < NOW()
	`
	tag, err := q.Exec(ctx, query, domain.HoldStatusExpired, domain.HoldStatusActive)
	if err != nil {
		return 0, fmt.Errorf("sweep expired holds: %w", err)
	}
	return tag.RowsAffected(), nil
}
