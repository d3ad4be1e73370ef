package ratelimiter

import (
	"context"
	"time"
)

// Limiter defines the interface for request rate limiters.
// One token is one permitted request. Implementations can be local (in-memory)
// or distributed; RateLimiter is the in-memory token bucket.
type Limiter interface {
	// TryAcquire takes a token if one is available and never waits.
	TryAcquire() bool

	// Acquire waits for a token. A non-positive timeout waits indefinitely.
	// It returns false with a nil error when the timeout elapses first,
	// and the context error if ctx is done while waiting.
	Acquire(ctx context.Context, timeout time.Duration) (bool, error)

	// Wait blocks until a token is taken or ctx is done.
	Wait(ctx context.Context) error

	// AvailableTokens returns the current balance without consuming anything.
	AvailableTokens() float64

	// TimeUntilAvailable returns how long until one token would be available (read-only).
	TimeUntilAvailable() time.Duration
}
