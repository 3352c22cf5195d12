// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound        = errors.New("not found")
	ErrDuplicateEntry  = errors.New("duplicate entry")
	ErrVersionConflict = errors.New("version conflict")

	// Gateway errors.
	ErrGateway   = errors.New("ai gateway call failed")
	ErrRateLimit = errors.New("rate limit exceeded")

	// Pipeline errors.
	ErrExtractionParse    = errors.New("no structured data in model response")
	ErrResolutionNotFound = errors.New("no transaction matched search criteria")
	ErrUnknownUser        = errors.New("unknown user")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
)

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
