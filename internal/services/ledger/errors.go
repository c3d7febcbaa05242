package ledger

import "errors"

// Service errors
var (
	ErrUnknownTransaction   = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrIllegalTransition    = errors.New("illegal transaction transition")
	ErrInvalidAmount        = errors.New("invalid transaction amount")
	ErrInvalidStatus        = errors.New("invalid transaction status")
)
