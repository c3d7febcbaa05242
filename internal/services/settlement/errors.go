package settlement

import "errors"

// Service errors
var (
	ErrDisputeBlocksPayout = errors.New("an open dispute blocks this payout")
	ErrUnauthorized        = errors.New("actor is not authorized for this action")
	ErrUnknownOrder        = errors.New("order not found")
)
