package hrailab

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how provider-reported rate limits are retried.
// Only RateLimitErrors returned by the provider are retried; every other
// error is returned immediately.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries int

	// InitialInterval is the delay before the first retry. It grows exponentially.
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// NewBackOff returns a fresh backoff for one request.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	bf := backoff.WithMaxRetries(eb, uint64(maxRetries))
	bf.Reset()
	return bf
}

// retryAfterBackOff stretches the next delay to the RetryAfter of the last
// provider rate limit error.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
}

func (b *retryAfterBackOff) observe(err error) {
	b.retryAfter = 0
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		b.retryAfter = rlErr.RetryAfter
	}
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	return max(next, b.retryAfter)
}

// doWithRetry executes fn according to policy p with respect to ctx.
// Errors that are not rate limit errors stop the loop at once. A nil timer
// uses the system clock.
func doWithRetry(ctx context.Context, p RetryPolicy, notify backoff.Notify, timer backoff.Timer, fn func(ctx context.Context) error) error {
	ra := &retryAfterBackOff{BackOff: p.NewBackOff()}
	bctx := backoff.WithContext(ra, ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && !IsRateLimitError(err) {
			return backoff.Permanent(err)
		}
		ra.observe(err)
		return err
	}
	return backoff.RetryNotifyWithTimer(op, bctx, notify, timer)
}
