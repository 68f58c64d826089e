package domain

const (
	SideDebit  = "debit"
	SideCredit = "credit"

	TxTypePayment = "payment"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"

	HoldStatusActive   = "active"
	HoldStatusCaptured = "captured"
	HoldStatusReleased = "released"
	HoldStatusExpired  = "expired"

	HoldReasonTransfer = "transfer"

	AccountStatusActive = "active"
	AccountTypeUser     = "user"
	AccountTypeFXPool   = "fx_pool"
)

// Default FX pool account ids. Must match the seed migration; overridable
// via config so tests can substitute isolated pools.
const (
	DefaultFXDebitPoolID  = "00000000-0000-0000-0000-000000000001"
	DefaultFXCreditPoolID = "00000000-0000-0000-0000-000000000002"
)

// HoldTerminal reports whether a hold status admits no further transitions.
func HoldTerminal(status string) bool {
	switch status {
	case HoldStatusCaptured, HoldStatusReleased, HoldStatusExpired:
		return true
	}
	return false
}

// TransactionTerminal reports whether a transaction status is final.
func TransactionTerminal(status string) bool {
	return status == TxStatusCompleted || status == TxStatusFailed
}
