package idle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultFrameBudget is the budget each callback gets: one 60Hz frame.
const DefaultFrameBudget = 16 * time.Millisecond

// maxDrainSteps bounds Drain so a callback that never makes progress cannot
// spin forever.
const maxDrainSteps = 1 << 20

var (
	// ErrLoopStopped is returned when work is submitted after Stop.
	ErrLoopStopped = errors.New("idle: loop is stopped")

	// ErrDrainLimit is returned when Drain gives up on work that keeps
	// re-registering itself.
	ErrDrainLimit = errors.New("idle: drain step limit reached")
)

// task is either an idle callback or a posted function.
type task struct {
	cb Callback
	fn func() error
}

// Loop is a FIFO idle-callback scheduler.
//
// Thread-safety model:
//   - RequestCallback, Post, Len, Stop: safe from any goroutine
//   - Run, Drain: must be called from exactly one goroutine; all tasks run there
type Loop struct {
	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{} // buffered, size 1

	clock   Clock
	frame   time.Duration
	logger  *slog.Logger
	onError func(error)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock sets the clock frame deadlines are measured on.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithFrameBudget sets the budget given to each callback.
func WithFrameBudget(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.frame = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithErrorHandler sets what Run does with task errors.
// The default logs them and continues.
func WithErrorHandler(fn func(error)) LoopOption {
	return func(l *Loop) {
		l.onError = fn
	}
}

// NewLoop creates a stopped-until-driven loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		tasks:  make([]task, 0, 16),
		signal: make(chan struct{}, 1),
		clock:  SystemClock{},
		frame:  DefaultFrameBudget,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.onError == nil {
		l.onError = func(err error) {
			l.logger.Error("idle task failed", "error", err)
		}
	}
	return l
}

// RequestCallback implements Scheduler. Callbacks submitted after Stop are
// dropped.
func (l *Loop) RequestCallback(cb Callback) {
	l.enqueue(task{cb: cb})
}

// Post schedules fn to run on the loop goroutine.
// Returns false if the loop has been stopped.
func (l *Loop) Post(fn func() error) bool {
	return l.enqueue(task{fn: fn})
}

func (l *Loop) enqueue(t task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, t)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) tryDequeue() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return task{}, false
	}
	t := l.tasks[0]
	l.tasks[0] = task{}
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return t, true
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Stop rejects further work and makes Run return once the queue is empty.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

func (l *Loop) runTask(t task) error {
	if t.fn != nil {
		return t.fn()
	}
	return t.cb(newFrameDeadline(l.clock, l.frame))
}

// Run processes tasks until ctx is cancelled or Stop is called and the queue
// drains. Task errors go to the error handler and processing continues.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("idle loop starting", "frame", l.frame)

	for {
		if t, ok := l.tryDequeue(); ok {
			if err := l.runTask(t); err != nil {
				l.onError(err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("idle loop stopping: context cancelled")
			l.Stop()
			return ctx.Err()
		case _, open := <-l.signal:
			if !open && l.Len() == 0 {
				l.logger.Debug("idle loop stopping: stopped")
				return nil
			}
		}
	}
}

// Drain runs queued tasks on the calling goroutine until the queue is empty,
// including tasks queued by the tasks themselves. It stops at the first task
// error and returns it.
func (l *Loop) Drain() (int, error) {
	n := 0
	for {
		if n >= maxDrainSteps && l.Len() > 0 {
			return n, fmt.Errorf("%w after %d tasks", ErrDrainLimit, n)
		}
		t, ok := l.tryDequeue()
		if !ok {
			return n, nil
		}
		n++
		if err := l.runTask(t); err != nil {
			return n, err
		}
	}
}

// Step runs exactly one queued task, if any. Reports whether a task ran.
func (l *Loop) Step() (bool, error) {
	t, ok := l.tryDequeue()
	if !ok {
		return false, nil
	}
	return true, l.runTask(t)
}
