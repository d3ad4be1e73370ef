package ratelimiter

import "time"

// Clock is the time source of a RateLimiter.
// Refill is computed from Now, and blocked callers sleep on timers from NewTimer,
// so tests can drive a bucket without real sleeps.
type Clock interface {
	Now() time.Time

	// NewTimer returns a channel that receives once d has elapsed
	// and a function that stops the timer.
	NewTimer(d time.Duration) (<-chan time.Time, func() bool)
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}
