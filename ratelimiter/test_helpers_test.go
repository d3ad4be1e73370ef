package ratelimiter

import (
	"sync"
	"time"
)

// fakeClock is a manual clock. Timers fire immediately and move time forward
// by their duration, as if the caller had slept exactly that long.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	now := c.now
	c.mu.Unlock()

	fired := make(chan time.Time, 1)
	fired <- now
	return fired, func() bool { return false }
}

func (c *fakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.sleeps {
		total += d
	}
	return total
}

// stuckClock never fires its timers; only context cancellation can end a wait.
type stuckClock struct {
	fakeClock
}

func (c *stuckClock) NewTimer(time.Duration) (<-chan time.Time, func() bool) {
	return make(chan time.Time), func() bool { return true }
}

// countingMetrics records collector calls.
type countingMetrics struct {
	mu       sync.Mutex
	acquired map[string]int
	rejected map[string]int
	waits    []time.Duration
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{acquired: map[string]int{}, rejected: map[string]int{}}
}

func (m *countingMetrics) IncAcquired(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired[model]++
}

func (m *countingMetrics) IncRejected(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[model]++
}

func (m *countingMetrics) ObserveWait(_ string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits = append(m.waits, d)
}
