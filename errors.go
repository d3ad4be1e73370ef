package hrailab

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError is returned when a rate limit is hit, either by the local
// limiter or reported by the provider.
type RateLimitError struct {
	RetryAfter time.Duration
	LimitType  string
	Model      string
	Err        error // Underlying error from the provider
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("rate limit exceeded for %s: %s limit, retry after %v",
		e.Model, e.LimitType, e.RetryAfter)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

var (
	// ErrModelNotRegistered is returned when a model has no registered provider.
	ErrModelNotRegistered = errors.New("model not registered")

	// ErrProviderNotConfigured is returned when a provider lacks required config.
	ErrProviderNotConfigured = errors.New("provider not configured")
)
