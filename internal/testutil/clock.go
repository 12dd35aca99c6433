package testutil

import (
	"sync"
	"time"
)

// DefaultNow is the instant a FrozenClock starts at when given the zero time.
var DefaultNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// FrozenClock is a wall clock for tests that only moves when told to.
//
// Pass its Now method wherever a func() time.Time is expected so that
// backfilled dates and journal timestamps are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock stopped at start.
func NewFrozenClock(start time.Time) *FrozenClock {
	if start.IsZero() {
		start = DefaultNow
	}
	return &FrozenClock{now: start}
}

// Now returns the current instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *FrozenClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
