package idle

import (
	"math"
	"time"
)

// Deadline reports how much of the current callback's budget is left.
type Deadline interface {
	TimeRemaining() time.Duration
}

// Callback is the work registered with a Scheduler. A returned error is
// surfaced to whoever drives the scheduler.
type Callback func(d Deadline) error

// Scheduler is the idle-callback capability.
// RequestCallback must not invoke cb synchronously.
type Scheduler interface {
	RequestCallback(cb Callback)
}

// Clock supplies the current time for frame deadlines.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

type unlimited struct{}

func (unlimited) TimeRemaining() time.Duration {
	return time.Duration(math.MaxInt64)
}

// Unlimited never runs out. Used to flush all pending work synchronously.
var Unlimited Deadline = unlimited{}

// frameDeadline ends a fixed duration after the callback started.
type frameDeadline struct {
	clock Clock
	end   time.Time
}

func newFrameDeadline(clock Clock, frame time.Duration) frameDeadline {
	return frameDeadline{clock: clock, end: clock.Now().Add(frame)}
}

// TimeRemaining implements Deadline. Never negative.
func (d frameDeadline) TimeRemaining() time.Duration {
	r := d.end.Sub(d.clock.Now())
	if r < 0 {
		return 0
	}
	return r
}
