package idle

import (
	"sync"
	"time"
)

// stepEpoch is the fixed start of every StepClock.
var stepEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic Clock that advances by a fixed step every
// time it is read.
//
// A Loop driven by a StepClock measures budgets in deadline checks rather
// than wall time: with step s and frame (n+1)*s, each callback sees exactly
// n checks with time remaining. The render command and the scenario harness
// size their unit budgets this way.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	now   time.Time
	step  time.Duration
	reads int64
}

// NewStepClock creates a clock at a fixed epoch advancing by step per read.
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{now: stepEpoch, step: step}
}

// UnitFrame returns the frame that gives a StepClock with the given step
// exactly units checks per callback.
func UnitFrame(step time.Duration, units int) time.Duration {
	return time.Duration(units+1) * step
}

// Now implements Clock. It returns the current time, then advances.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	c.reads++
	return t
}

// Reads returns how many times Now has been called.
func (c *StepClock) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset returns the clock to its epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = stepEpoch
	c.reads = 0
}
