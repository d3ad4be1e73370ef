package ratelimiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// tokenEpsilon absorbs float rounding so that waiting exactly one refill
// interval always yields a whole token.
const tokenEpsilon = 1e-9

// RateLimiter is an in-memory token bucket that admits one request per token.
//
// The bucket holds at most capacity tokens and refills continuously at
// refillRate tokens per second. Refill is computed lazily from elapsed time
// whenever the balance is read or changed, so there is no background goroutine.
// All state is guarded by a single mutex; refill, check and decrement happen
// in one critical section.
type RateLimiter struct {
	model      string
	capacity   int
	refillRate float64 // tokens per second
	clock      Clock
	metrics    MetricsCollector

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// Ensure RateLimiter implements Limiter.
var _ Limiter = (*RateLimiter)(nil)

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(clock Clock) Option {
	return func(rl *RateLimiter) {
		if clock != nil {
			rl.clock = clock
		}
	}
}

// WithModel labels the limiter with the model it throttles.
func WithModel(model string) Option {
	return func(rl *RateLimiter) {
		rl.model = model
	}
}

// WithMetrics sets a collector notified about acquisitions, rejections and waits.
func WithMetrics(mc MetricsCollector) Option {
	return func(rl *RateLimiter) {
		if mc != nil {
			rl.metrics = mc
		}
	}
}

// New creates a limiter for the given requests-per-minute budget.
// The bucket holds requestsPerMinute tokens and refills requestsPerMinute/60 tokens per second.
func New(requestsPerMinute int, opts ...Option) (*RateLimiter, error) {
	return NewTokenBucket(requestsPerMinute, time.Minute, opts...)
}

// NewTokenBucket creates a full bucket that refills capacity tokens every per.
func NewTokenBucket(capacity int, per time.Duration, opts ...Option) (*RateLimiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidQuota, capacity)
	}
	if per <= 0 {
		return nil, fmt.Errorf("refill period must be positive, got %v", per)
	}

	rl := &RateLimiter{
		capacity:   capacity,
		refillRate: float64(capacity) / per.Seconds(),
		clock:      SystemClock,
		metrics:    disabledMetricsCollector,
	}
	for _, opt := range opts {
		opt(rl)
	}

	rl.tokens = float64(capacity)
	rl.lastRefill = rl.clock.Now()
	return rl, nil
}

// Model returns the model name the limiter was created for.
func (rl *RateLimiter) Model() string {
	return rl.model
}

// Capacity returns the maximum number of tokens the bucket can hold.
func (rl *RateLimiter) Capacity() int {
	return rl.capacity
}

// RefillRate returns the refill rate in tokens per second.
func (rl *RateLimiter) RefillRate() float64 {
	return rl.refillRate
}

// TryAcquire takes one token if available. It never blocks.
func (rl *RateLimiter) TryAcquire() bool {
	rl.mu.Lock()
	ok, _ := rl.takeLocked(rl.clock.Now())
	rl.mu.Unlock()

	if ok {
		rl.metrics.IncAcquired(rl.model)
	} else {
		rl.metrics.IncRejected(rl.model)
	}
	return ok
}

// Acquire blocks until a token is taken, the timeout elapses or ctx is done.
//
// A non-positive timeout means no timeout. The deadline is fixed when Acquire
// is called, so repeated wake-ups never extend the caller's budget. After
// every wake-up availability is re-checked under the lock, since another
// waiter may have taken the token first. Waiters are not served in FIFO order.
func (rl *RateLimiter) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	start := rl.clock.Now()
	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}

	for {
		rl.mu.Lock()
		now := rl.clock.Now()
		ok, wait := rl.takeLocked(now)
		rl.mu.Unlock()

		if ok {
			rl.metrics.IncAcquired(rl.model)
			rl.metrics.ObserveWait(rl.model, now.Sub(start))
			return true, nil
		}

		if !deadline.IsZero() {
			remaining := deadline.Sub(now)
			if remaining <= 0 {
				rl.metrics.IncRejected(rl.model)
				return false, nil
			}
			if wait > remaining {
				wait = remaining
			}
		}

		if err := rl.sleep(ctx, wait); err != nil {
			rl.metrics.IncRejected(rl.model)
			return false, err
		}
	}
}

// Wait blocks until a token is taken. It only fails when ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	_, err := rl.Acquire(ctx, 0)
	return err
}

// AvailableTokens refills the bucket and returns its balance without consuming a token.
// The value is for monitoring only: a later TryAcquire may still fail.
func (rl *RateLimiter) AvailableTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(rl.clock.Now())
	return rl.tokens
}

// TimeUntilAvailable returns how long until one token would be available.
// This does not consume tokens.
func (rl *RateLimiter) TimeUntilAvailable() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(rl.clock.Now())
	return rl.waitLocked()
}

// Reset refills the bucket to capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = float64(rl.capacity)
	rl.lastRefill = rl.clock.Now()
}

// takeLocked refills and consumes one token.
// When no token is available it returns the time needed for one to accrue.
func (rl *RateLimiter) takeLocked(now time.Time) (bool, time.Duration) {
	rl.refillLocked(now)
	if rl.tokens+tokenEpsilon >= 1 {
		rl.tokens = math.Max(0, rl.tokens-1)
		return true, 0
	}
	return false, rl.waitLocked()
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	if elapsed <= 0 {
		return
	}
	rl.tokens = math.Min(float64(rl.capacity), rl.tokens+elapsed.Seconds()*rl.refillRate)
	rl.lastRefill = now
}

func (rl *RateLimiter) waitLocked() time.Duration {
	missing := 1 - rl.tokens
	if missing <= tokenEpsilon {
		return 0
	}
	return time.Duration(math.Ceil(missing / rl.refillRate * float64(time.Second)))
}

func (rl *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	fired, stop := rl.clock.NewTimer(d)
	defer stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}
