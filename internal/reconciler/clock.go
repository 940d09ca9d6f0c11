package reconciler

import "sync/atomic"

// Clock stamps generations with a monotonic number.
//
// Every Render call takes the next number, whether or not the generation it
// starts is ever committed.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), so
// one clock can be shared by reconcilers that must be ordered relative to
// each other.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
