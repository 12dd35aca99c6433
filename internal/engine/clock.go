package engine

import "sync/atomic"

// Clock stamps mutation records with a per-run sequence number.
//
// The journal orders attempts by seq rather than by timestamp, since chunked
// field writes often complete within the same millisecond. The zero value
// is ready to use and starts at 0.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
