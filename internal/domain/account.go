package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is the in-memory aggregate loaded for one transfer. Available is
// derived from the ledger and active holds at load time and is never stored.
type Account struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Currency  string
	Type      string
	Status    string
	Available int64
	CreatedAt time.Time
}

// Debit reduces the in-memory available balance. The storage-level
// sufficiency check runs before the hold is created; this re-checks at the
// aggregate level.
func (a *Account) Debit(amount Money) error {
	if amount.AmountMinor <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", ErrInvalidArgument)
	}
	if amount.Currency != a.Currency {
		return fmt.Errorf("%w: debit currency %s does not match account currency %s", ErrInvalidArgument, amount.Currency, a.Currency)
	}
	if a.Available < amount.AmountMinor {
		return fmt.Errorf("%w: account %s has %d, needs %d", ErrInsufficientBalance, a.ID, a.Available, amount.AmountMinor)
	}
	a.Available -= amount.AmountMinor
	return nil
}

// Credit increases the in-memory available balance.
func (a *Account) Credit(amount Money) error {
	if amount.AmountMinor <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrInvalidArgument)
	}
	if amount.Currency != a.Currency {
		return fmt.Errorf("%w: credit currency %s does not match account currency %s", ErrInvalidArgument, amount.Currency, a.Currency)
	}
	a.Available += amount.AmountMinor
	return nil
}
