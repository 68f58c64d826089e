package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the persisted account row. Balance is intentionally absent:
// it is always derived from ledger_entries and holds.
type Account struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Currency  string    `json:"currency"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEntry is an immutable debit or credit row. Corrections are new
// entries, never updates.
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Side          string    `json:"side"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// Hold reserves funds against an account until captured, released or
// expired.
type Hold struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Transaction records one transfer attempt. The idempotency key carries a
// unique constraint, which is the source of truth for at-most-once
// execution.
type Transaction struct {
	ID             uuid.UUID      `json:"id"`
	IdempotencyKey string         `json:"idempotency_key"`
	Type           string         `json:"type"`
	Status         string         `json:"status"`
	FromAccountID  uuid.UUID      `json:"from_account_id"`
	ToAccountID    uuid.UUID      `json:"to_account_id"`
	AmountMinor    int64          `json:"amount_minor"`
	Currency       string         `json:"currency"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// FxTransaction is the FX leg audit row, at most one per transaction.
type FxTransaction struct {
	ID               uuid.UUID `json:"id"`
	TransactionID    uuid.UUID `json:"transaction_id"`
	BaseAmountMinor  int64     `json:"base_amount_minor"`
	BaseCurrency     string    `json:"base_currency"`
	QuoteAmountMinor int64     `json:"quote_amount_minor"`
	QuoteCurrency    string    `json:"quote_currency"`
	Rate             string    `json:"rate"`
	Spread           string    `json:"spread"`
	CreatedAt        time.Time `json:"created_at"`
}

// TransferResult is what a completed transfer returns and what the
// idempotency store caches.
type TransferResult struct {
	TransferID    uuid.UUID `json:"transfer_id"`
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
}
