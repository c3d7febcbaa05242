package dispute

import "errors"

// Service errors
var (
	ErrInvalidAmount     = errors.New("dispute amount must be positive")
	ErrUnknownDispute    = errors.New("dispute not found")
	ErrIllegalTransition = errors.New("illegal dispute transition")
)
