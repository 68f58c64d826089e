package domain

import "errors"

var (
	// ErrInvalidArgument covers malformed input: non-positive amounts,
	// empty idempotency keys, same from/to account, unknown FX pairs.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAccountNotFound is returned before any mutation has occurred.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance is returned before the hold is created.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrStorageFailure wraps commit failures, lock timeouts and scan
	// errors; it routes the transfer into the compensation path.
	ErrStorageFailure = errors.New("storage failure")
)
