package repositories

import "errors"

// Storage-level sentinel errors. Services translate these into their own
// error vocabulary at the boundary.
var (
	ErrTransactionNotFound  = errors.New("transaction record not found")
	ErrDuplicateTransaction = errors.New("transaction id already exists")
	ErrPayoutNotFound       = errors.New("payout record not found")
	ErrDisputeNotFound      = errors.New("dispute record not found")
)
