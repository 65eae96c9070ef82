package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Engagement scoring
	ErrZeroDenominator    = errors.New("engagement denominator is zero")
	ErrMissingDenominator = errors.New("engagement denominator not configured")
	ErrInvalidDenominator = errors.New("engagement denominator must be a positive number")
)
