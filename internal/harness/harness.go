package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/host"
	"github.com/roach88/loom/internal/idle"
	"github.com/roach88/loom/internal/markup"
	"github.com/roach88/loom/internal/reconciler"
	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/trace"
)

// clockStep is how far the scenario clock advances per read. Frames are
// sized in whole steps so that a budget of n allows exactly n units.
const clockStep = time.Millisecond

// unlimitedFrame is the frame used for budget 0.
const unlimitedFrame = time.Hour

// Option configures a scenario run.
type Option func(*config)

type config struct {
	store  *store.Store
	logger *slog.Logger
}

// WithStore records the run as a session in st, one stored commit per
// successful commit.
func WithStore(st *store.Store) Option {
	return func(c *config) {
		c.store = st
	}
}

// WithLogger sets the logger for the reconciler and loop. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Harness executes one scenario. Every scenario gets a fresh memory host,
// container, idle loop and reconciler, so scenarios are isolated and their
// node labels and generations are reproducible.
type Harness struct {
	scenario *Scenario
	mem      *host.Memory
	root     *host.MemNode
	loop     *idle.Loop
	rec      *reconciler.Reconciler
	reg      *markup.Registry
	logger   *slog.Logger
	result   *Result

	// commits collects commit hook records for the running step.
	commits []CommitRecord
}

// Run executes a test scenario and returns the result.
//
// Execution errors in the harness itself (an undecodable tree, a store
// failure) are returned as errors. Reconciler errors are part of the result:
// a step whose error code differs from its expect_error fails the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := newHarness(scenario, cfg.logger)
	if err := h.defineComponents(); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		sr, err := h.runStep(i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		h.result.Steps = append(h.result.Steps, sr)

		if sr.ErrorCode != step.ExpectError {
			h.result.AddError(stepMismatch(sr, step.ExpectError))
		}
	}
	h.result.FinalTree = host.Dump(h.root)

	if cfg.store != nil {
		if err := record(context.Background(), cfg.store, scenario, h.result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func newHarness(scenario *Scenario, logger *slog.Logger) *Harness {
	h := &Harness{
		scenario: scenario,
		mem:      host.NewMemory(),
		logger:   logger,
		result:   NewResult(),
	}
	h.root = h.mem.NewContainer("root")

	frame := unlimitedFrame
	if scenario.Budget > 0 {
		frame = idle.UnitFrame(clockStep, scenario.Budget)
	}
	h.loop = idle.NewLoop(
		idle.WithClock(idle.NewStepClock(clockStep)),
		idle.WithFrameBudget(frame),
		idle.WithLogger(logger),
	)
	h.rec = reconciler.New(h.mem, h.loop,
		reconciler.WithLogger(logger),
		reconciler.WithYieldThreshold(clockStep),
		reconciler.WithCommitHook(h.onCommit),
	)
	h.reg = markup.NewRegistry(
		markup.WithAutoListeners(),
		markup.WithLogger(logger),
		markup.WithEventHook(func(name string, _ element.Event) {
			h.result.Events[name]++
		}),
	)
	return h
}

func (h *Harness) defineComponents() error {
	for _, name := range h.scenario.componentNames() {
		node := h.scenario.Components[name]
		if err := markup.DefineYAML(name, &node, h.scenario.file, "components."+name, h.reg); err != nil {
			return fmt.Errorf("component %s: %w", name, err)
		}
	}
	return nil
}

// onCommit attributes the ops issued since the previous commit to this one.
func (h *Harness) onCommit(info reconciler.CommitInfo) {
	h.commits = append(h.commits, CommitRecord{
		Generation: info.Generation,
		Fibers:     info.Fibers,
		Ops:        h.mem.TakeOps(),
	})
}

func (h *Harness) runStep(i int, step Step) (StepResult, error) {
	sr := StepResult{Index: i, Kind: step.Kind()}
	h.commits = nil

	if step.Fail != nil {
		kind, err := trace.ParseKind(step.Fail.Op)
		if err != nil {
			return sr, err
		}
		h.mem.FailOn(kind, max(step.Fail.Nth, 1), nil)
	}

	var stepErr error
	switch sr.Kind {
	case StepRender:
		el, err := markup.FromYAMLNode(step.Render, h.scenario.file, fmt.Sprintf("steps[%d].render", i), h.reg)
		if err != nil {
			return sr, err
		}
		h.rec.Render(el, h.root)
		sr.Callbacks, stepErr = h.loop.Drain()
	case StepClear:
		h.rec.Render(nil, h.root)
		sr.Callbacks, stepErr = h.loop.Drain()
	case StepDispatch:
		stepErr = h.dispatch(step.Dispatch)
		if stepErr == nil {
			// Listeners may schedule renders.
			sr.Callbacks, stepErr = h.loop.Drain()
		}
	}

	var ops []trace.Op
	for _, c := range h.commits {
		ops = append(ops, c.Ops...)
	}
	ops = append(ops, h.mem.TakeOps()...)

	sr.Ops = ops
	sr.Commits = h.commits
	sr.Generation = h.rec.Generation()
	if stepErr != nil {
		sr.ErrorCode = errorCode(stepErr)
		sr.Error = stepErr.Error()
		h.logger.Debug("step failed", "step", i, "code", sr.ErrorCode, "error", stepErr)
	}
	h.logger.Debug("step completed",
		"step", i,
		"kind", sr.Kind,
		"ops", len(sr.Ops),
		"callbacks", sr.Callbacks,
		"generation", sr.Generation,
	)
	return sr, nil
}

func (h *Harness) dispatch(d *DispatchStep) error {
	n := host.Find(h.root, d.Node)
	if n == nil {
		return fmt.Errorf("dispatch: no node %q", d.Node)
	}
	if !h.mem.Dispatch(n, d.Event, nil) {
		return fmt.Errorf("dispatch: nothing listens for %s on %s", d.Event, n.Label())
	}
	return nil
}

func stepMismatch(sr StepResult, want string) string {
	switch {
	case want == "":
		return fmt.Sprintf("step %d (%s): unexpected error: %s", sr.Index, sr.Kind, sr.Error)
	case sr.ErrorCode == "":
		return fmt.Sprintf("step %d (%s): expected error %s, step succeeded", sr.Index, sr.Kind, want)
	default:
		return fmt.Sprintf("step %d (%s): expected error %s, got %s", sr.Index, sr.Kind, want, sr.Error)
	}
}

// record stores the run as a session.
func record(ctx context.Context, st *store.Store, scenario *Scenario, result *Result) error {
	id := scenario.SessionID
	if id == "" {
		id = "scenario-" + scenario.Name
	}
	if _, err := st.CreateSession(ctx, id, scenario.Name); err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	for _, step := range result.Steps {
		for _, c := range step.Commits {
			if _, err := st.WriteCommit(ctx, id, c.Generation, c.Ops); err != nil {
				return fmt.Errorf("record session: %w", err)
			}
		}
	}
	result.SessionID = id
	return nil
}
