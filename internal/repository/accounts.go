package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/domain"
	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/observability"
)

// AccountRepo loads accounts and derives their available balance from the
// ledger and active holds. The balance is recomputed on every read, never
// cached across requests.
type AccountRepo struct {
	ledger *LedgerRepo
	holds  *HoldRepo
}

func NewAccountRepo(ledger *LedgerRepo, holds *HoldRepo) *AccountRepo {
	return &AccountRepo{ledger: ledger, holds: holds}
}

// Get loads an account without locking.
func (r *AccountRepo) Get(ctx context.Context, q DB, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, owner_id, currency, type, status, created_at FROM accounts WHERE id = $1`
	return r.load(ctx, q, query, id)
}

// GetForUpdate loads an account under a row-level write lock held until the
// enclosing transaction ends. Must be called inside Store.RunInTx.
func (r *AccountRepo) GetForUpdate(ctx context.Context, q DB, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, owner_id, currency, type, status, created_at FROM accounts WHERE id = $1 FOR UPDATE`
	return r.load(ctx, q, query, id)
}

func (r *AccountRepo) load(ctx context.Context, q DB, query string, id uuid.UUID) (*domain.Account, error) {
	acc := &domain.Account{}
	err := q.QueryRow(ctx, query, id).Scan(&acc.ID, &acc.OwnerID, &acc.Currency, &acc.Type, &acc.Status, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("load account %s: %w", id, err)
	}

	settled, err := r.ledger.Balance(ctx, q, acc.ID, acc.Currency)
	if err != nil {
		return nil, err
	}
	held, err := r.holds.ActiveSum(ctx, q, acc.ID, acc.Currency)
	if err != nil {
		return nil, err
	}

	acc.Available = settled.AmountMinor - held.AmountMinor
	if acc.Available < 0 {
		// Should not happen while the hold and ledger invariants stand.
		// Clamp, but surface it loudly for investigation.
		zap.L().Warn("derived available balance is negative",
			zap.String("account_id", acc.ID.String()),
			zap.Int64("settled_minor", settled.AmountMinor),
			zap.Int64("held_minor", held.AmountMinor),
		)
		observability.IncrementNegativeAvailable(acc.Currency)
		acc.Available = 0
	}
	return acc, nil
}

// Create inserts an account row. Accounts are provisioned out-of-band by
// seed tooling; the transfer engine never creates them.
func (r *AccountRepo) Create(ctx context.Context, q DB, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, currency, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	if _, err := q.Exec(ctx, query,
		account.ID, account.OwnerID, account.Currency, account.Type, account.Status,
	); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}
