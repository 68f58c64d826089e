package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary value in minor units of an ISO 4217 currency.
// Amounts are stored as int64 minor units to avoid floating point errors.
type Money struct {
	AmountMinor int64
	Currency    string
}

// NewMoney builds a Money with a strictly positive amount. Negative or zero
// amounts and malformed currency codes are rejected here, at the type
// boundary, rather than deep in the transfer flow.
func NewMoney(amountMinor int64, currency string) (Money, error) {
	if amountMinor <= 0 {
		return Money{}, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidArgument, amountMinor)
	}
	if err := ValidateCurrency(currency); err != nil {
		return Money{}, err
	}
	return Money{AmountMinor: amountMinor, Currency: currency}, nil
}

// ZeroMoney is the additive identity for balance sums.
func ZeroMoney(currency string) Money {
	return Money{AmountMinor: 0, Currency: currency}
}

// ValidateCurrency checks for a 3-letter uppercase ISO 4217 code.
func ValidateCurrency(currency string) error {
	if currency == "" {
		return fmt.Errorf("%w: currency cannot be empty", ErrInvalidArgument)
	}
	if len(currency) != 3 {
		return fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidArgument, currency)
	}
	for _, c := range currency {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidArgument, currency)
		}
	}
	return nil
}

// ToDecimal converts the minor-unit amount to a decimal for FX arithmetic.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.NewFromInt(m.AmountMinor)
}

// LessThan compares amounts; both sides must share a currency.
func (m Money) LessThan(other Money) bool {
	return m.AmountMinor < other.AmountMinor
}

// String renders e.g. "3000 USD" for logs.
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.AmountMinor, m.Currency)
}
