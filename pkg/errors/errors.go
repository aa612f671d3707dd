package chaterrors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidOperation  = errors.New("operation not allowed for this conversation type")
	ErrNotAParticipant   = errors.New("not an active participant")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrOwnershipMismatch = errors.New("document belongs to a different customer")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// RateLimitedError carries a retry hint alongside the ErrRateLimited sentinel.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "rate limited"
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RateLimited builds a RateLimitedError with the given retry hint.
func RateLimited(retryAfter time.Duration) error {
	return &RateLimitedError{RetryAfter: retryAfter}
}

// RetryAfter extracts the retry hint from a rate-limit error, if present.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
