package errors

import (
	"context"
	"errors"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}

// Code extracts the ErrorCode from any error, returning Unknown for
// errors that did not originate in this package.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return Unknown
}

// IsTransient reports whether the error is worth retrying: provider
// timeouts, rate limiting and server-side faults. Everything else,
// including context cancellation, fails immediately.
func IsTransient(err error) bool {
	switch Code(err) {
	case Timeout, RateLimited, ServerError:
		return true
	default:
		return false
	}
}
