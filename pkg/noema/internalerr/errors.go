package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrBudgetExceeded = errors.New("iteration budget exceeded")
)
