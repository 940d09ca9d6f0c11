package reconciler

import (
	"log/slog"
	"time"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/host"
	"github.com/roach88/loom/internal/idle"
)

// DefaultYieldThreshold is the least remaining budget the work loop needs to
// start another unit of work.
const DefaultYieldThreshold = time.Millisecond

// EffectRecord describes one fiber's effect in a commit.
type EffectRecord struct {
	// Path is the fiber's position below the root as child indices, e.g.
	// "0/1" for the second child of the root's first child.
	Path   string
	Tag    string
	Effect Effect
}

// CommitInfo summarizes a completed commit.
type CommitInfo struct {
	Generation int64

	// Effects lists the committed fibers in pre-order, including fibers
	// with no effect.
	Effects []EffectRecord

	// Deletions lists the removed fibers in the order they were detached.
	Deletions []EffectRecord

	// Fibers is the size of the new committed tree, root included.
	Fibers int
}

// renderRequest is a Render call deferred until the current unit of work or
// commit finishes.
type renderRequest struct {
	el        *element.Element
	container host.Node
}

// Reconciler owns one committed tree and at most one work-in-progress tree.
type Reconciler struct {
	host      host.Host
	sched     idle.Scheduler
	logger    *slog.Logger
	clock     *Clock
	threshold time.Duration
	onCommit  func(CommitInfo)

	// committed generation
	current     *arena
	currentRoot fiberID

	// in-flight generation
	wip       *arena
	wipRoot   fiberID
	next      fiberID
	deletions []fiberID // indices into current

	armed    bool
	busy     bool
	stalled  error
	deferred *renderRequest
	last     *CommitInfo
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. The default discards debug output through
// slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithYieldThreshold sets the least remaining budget needed to start a unit
// of work.
func WithYieldThreshold(d time.Duration) Option {
	return func(r *Reconciler) {
		r.threshold = d
	}
}

// WithClock shares a generation clock between reconcilers.
func WithClock(c *Clock) Option {
	return func(r *Reconciler) {
		r.clock = c
	}
}

// WithCommitHook registers a function called after every successful commit.
func WithCommitHook(fn func(CommitInfo)) Option {
	return func(r *Reconciler) {
		r.onCommit = fn
	}
}

// New creates an idle reconciler that applies changes through h and is
// driven by callbacks requested from sched.
func New(h host.Host, sched idle.Scheduler, opts ...Option) *Reconciler {
	r := &Reconciler{
		host:      h,
		sched:     sched,
		logger:    slog.Default(),
		clock:     NewClock(),
		threshold: DefaultYieldThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render schedules el to be rendered into container.
//
// Any generation that has not started committing is discarded. A Render
// issued while a unit of work or a commit is running (from a component or
// host callback) takes effect as soon as that step finishes. A nil element
// renders an empty tree.
//
// A reconciler is meant to serve one container. Rendering into a different
// container than the committed one mounts from scratch.
func (r *Reconciler) Render(el *element.Element, container host.Node) {
	if r.busy {
		r.deferred = &renderRequest{el: el, container: container}
		return
	}
	r.schedule(el, container)
}

func (r *Reconciler) schedule(el *element.Element, container host.Node) {
	gen := r.clock.Next()

	alternate := r.currentRoot
	if alternate != noFiber && r.current.at(alternate).node != container {
		r.logger.Warn("container changed, mounting from scratch", "generation", gen)
		alternate = noFiber
	}

	children := element.Children{}
	if el != nil {
		children = element.Children{el}
	}

	if r.wip != nil {
		r.logger.Debug("discarding unfinished generation", "generation", r.wip.gen)
	}

	r.wip = newArena(gen)
	r.wipRoot = r.wip.alloc(fiber{
		props:     element.Props{element.ChildrenKey: children},
		node:      container,
		alternate: alternate,
	})
	r.deletions = nil
	r.next = r.wipRoot
	r.stalled = nil

	r.logger.Debug("render scheduled", "generation", gen)
	r.arm()
}

// arm requests an idle callback unless one is already pending.
func (r *Reconciler) arm() {
	if r.armed {
		return
	}
	r.armed = true
	r.sched.RequestCallback(r.onIdle)
}

// onIdle is the callback registered with the scheduler. A stalled
// generation is not retried.
func (r *Reconciler) onIdle(d idle.Deadline) error {
	r.armed = false
	if r.stalled != nil {
		return nil
	}
	return r.workLoop(d)
}

// Flush runs all pending work, including the commit, synchronously.
// A pending idle callback stays registered and finds nothing to do.
// On a stalled generation Flush returns the error that stalled it.
func (r *Reconciler) Flush() error {
	if r.stalled != nil {
		return r.stalled
	}
	return r.workLoop(idle.Unlimited)
}

// Pending reports whether a generation is in flight.
func (r *Reconciler) Pending() bool {
	return r.wip != nil
}

// Stalled reports whether the in-flight generation is stuck on a failed
// unit of work and needs a fresh Render.
func (r *Reconciler) Stalled() bool {
	return r.stalled != nil
}

// Generation returns the generation of the committed tree, 0 before the
// first commit.
func (r *Reconciler) Generation() int64 {
	if r.current == nil {
		return 0
	}
	return r.current.gen
}

// LastCommit returns the summary of the most recent commit, nil before the
// first one.
func (r *Reconciler) LastCommit() *CommitInfo {
	return r.last
}
