package payout

import "errors"

// Service errors
var (
	ErrInvalidAmount           = errors.New("payout amount must be positive")
	ErrInvalidHoldingPeriod    = errors.New("holding period cannot be negative")
	ErrUnknownPayout           = errors.New("payout not found")
	ErrIllegalTransition       = errors.New("illegal payout transition")
	ErrHoldingPeriodNotElapsed = errors.New("holding period has not elapsed")
)
