package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/host"
	"github.com/roach88/loom/internal/idle"
	"github.com/roach88/loom/internal/markup"
	"github.com/roach88/loom/internal/reconciler"
	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/trace"
)

// unitStep is the clock advance per read. A budget of n units is a frame of
// n+1 steps, since the deadline is read once before every unit.
const unitStep = time.Millisecond

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string
	Budget   int
	Name     string

	ids SessionGenerator
}

// CommitOutput describes one commit in render and trace output.
type CommitOutput struct {
	Generation int64    `json:"generation"`
	ID         string   `json:"id,omitempty"`
	Fibers     int      `json:"fibers,omitempty"`
	Ops        []string `json:"ops"`
}

// FileRender holds the outcome of rendering one tree file.
type FileRender struct {
	File      string         `json:"file"`
	Callbacks int            `json:"callbacks"`
	Commits   []CommitOutput `json:"commits"`
	Tree      string         `json:"tree"`

	ops [][]trace.Op
}

// RenderResult holds the render command output.
type RenderResult struct {
	Session string       `json:"session,omitempty"`
	Files   []FileRender `json:"files"`
}

// NewRenderCommand creates the render command. Recorded sessions get
// UUIDv7 ids.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	return newRenderCommand(rootOpts, UUIDv7Generator{})
}

func newRenderCommand(rootOpts *RootOptions, ids SessionGenerator) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts, ids: ids}

	cmd := &cobra.Command{
		Use:   "render <tree-file>...",
		Short: "Render tree files into an in-memory host",
		Long: `Render one or more tree files (YAML or CUE) into the same in-memory
host container, in order. Each file after the first is reconciled against the
tree the previous file committed, so the printed operations are the updates
needed to get from one file to the next.

With --db, every commit is recorded as part of a new session that can be
inspected later with "loom trace".

Examples:
  loom render page.yaml
  loom render v1.yaml v2.yaml --budget 2
  loom render page.cue --db ./loom.db --name checkout
  loom render page.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record commits to this SQLite database")
	cmd.Flags().IntVar(&opts.Budget, "budget", 0, "units of work per idle callback (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "session name (defaults to the first file name)")

	return cmd
}

func runRender(opts *RenderOptions, files []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Budget < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("budget must be non-negative, got %d", opts.Budget))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("tree file not found: %s", f), nil)
			return WrapExitError(ExitCommandError, "tree file not found", err)
		}
	}

	r := newRenderer(opts.Budget, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	result := RenderResult{Files: make([]FileRender, 0, len(files))}

	var rec *recorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		name := opts.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(files[0]), filepath.Ext(files[0]))
		}
		rec, err = newRecorder(ctx, st, opts.ids.Generate(), name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create session", err)
		}
		result.Session = rec.session
		formatter.VerboseLog("Recording session %s to %s", rec.session, opts.Database)
	}

	for _, f := range files {
		formatter.VerboseLog("Rendering %s", f)
		fr, err := r.renderFile(f)
		if fr != nil && rec != nil {
			if recErr := rec.record(ctx, fr); recErr != nil {
				return WrapExitError(ExitCommandError, "failed to record commit", recErr)
			}
		}
		if err != nil {
			return outputRenderError(formatter, result, fr, err)
		}
		result.Files = append(result.Files, *fr)
	}

	if formatter.JSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result, Session: result.Session})
	}
	writeRenderText(formatter.Writer, result)
	return nil
}

// renderer drives one reconciler against one memory host container across
// all files of a render command.
type renderer struct {
	mem  *host.Memory
	root *host.MemNode
	loop *idle.Loop
	rec  *reconciler.Reconciler
	reg  *markup.Registry

	commits []CommitOutput
	raw     [][]trace.Op
}

func newRenderer(budget int, logger *slog.Logger) *renderer {
	r := &renderer{mem: host.NewMemory()}
	r.root = r.mem.NewContainer("root")

	frame := time.Hour
	if budget > 0 {
		frame = idle.UnitFrame(unitStep, budget)
	}
	r.loop = idle.NewLoop(
		idle.WithClock(idle.NewStepClock(unitStep)),
		idle.WithFrameBudget(frame),
		idle.WithLogger(logger),
	)
	r.rec = reconciler.New(r.mem, r.loop,
		reconciler.WithLogger(logger),
		reconciler.WithYieldThreshold(unitStep),
		reconciler.WithCommitHook(r.onCommit),
	)
	r.reg = markup.NewRegistry(markup.WithAutoListeners(), markup.WithLogger(logger))
	return r
}

func (r *renderer) onCommit(info reconciler.CommitInfo) {
	ops := r.mem.TakeOps()
	r.raw = append(r.raw, ops)
	r.commits = append(r.commits, CommitOutput{
		Generation: info.Generation,
		Fibers:     info.Fibers,
		Ops:        formatOps(ops),
	})
}

// renderFile renders one file. A decode error returns a nil FileRender; a
// render error returns the partial FileRender alongside it.
func (r *renderer) renderFile(path string) (*FileRender, error) {
	el, err := markup.LoadFile(path, r.reg)
	if err != nil {
		return nil, err
	}

	r.commits, r.raw = nil, nil
	r.rec.Render(el, r.root)
	n, err := r.loop.Drain()
	// Ops of an abandoned commit belong to no commit.
	r.mem.TakeOps()

	commits := r.commits
	if commits == nil {
		commits = []CommitOutput{}
	}
	return &FileRender{
		File:      path,
		Callbacks: n,
		Commits:   commits,
		Tree:      host.Dump(r.root),
		ops:       r.raw,
	}, err
}

// recorder writes commits of a render command to the store.
type recorder struct {
	st      *store.Store
	session string
}

func newRecorder(ctx context.Context, st *store.Store, id, name string) (*recorder, error) {
	s, err := st.CreateSession(ctx, id, name)
	if err != nil {
		return nil, err
	}
	return &recorder{st: st, session: s.ID}, nil
}

func (rc *recorder) record(ctx context.Context, fr *FileRender) error {
	for i := range fr.Commits {
		c := &fr.Commits[i]
		stored, err := rc.st.WriteCommit(ctx, rc.session, c.Generation, fr.ops[i])
		if err != nil {
			return err
		}
		c.ID = stored.ID
	}
	return nil
}

func outputRenderError(f *OutputFormatter, result RenderResult, partial *FileRender, err error) error {
	code := ErrCodeRender
	exit := ExitFailure
	var details any
	var de *markup.DecodeError
	var re *reconciler.RenderError
	switch {
	case errors.As(err, &de):
		code = ErrCodeDecode
	case errors.As(err, &re):
		details = string(re.Code)
	case errors.Is(err, os.ErrNotExist):
		code = ErrCodeNotFound
		exit = ExitCommandError
	}

	if partial != nil {
		result.Files = append(result.Files, *partial)
	}
	if f.JSON() {
		_ = f.Response(CLIResponse{
			Status:  "error",
			Data:    result,
			Session: result.Session,
			Error:   &CLIError{Code: code, Message: err.Error(), Details: details},
		})
	} else {
		writeRenderText(f.Writer, result)
		fmt.Fprintf(f.Writer, "✗ %v\n", err)
	}
	return WrapExitError(exit, "render failed", err)
}

func writeRenderText(w io.Writer, result RenderResult) {
	for _, fr := range result.Files {
		fmt.Fprintf(w, "%s: %d callbacks\n", fr.File, fr.Callbacks)
		for _, c := range fr.Commits {
			fmt.Fprintf(w, "  commit generation %d (%d fibers)\n", c.Generation, c.Fibers)
			for _, op := range c.Ops {
				fmt.Fprintf(w, "    %s\n", op)
			}
		}
	}
	if n := len(result.Files); n > 0 {
		fmt.Fprintln(w, "final:")
		writeIndented(w, result.Files[n-1].Tree, "  ")
	}
	if result.Session != "" {
		fmt.Fprintf(w, "session: %s\n", result.Session)
	}
}

func formatOps(ops []trace.Op) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func writeIndented(w io.Writer, text, prefix string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if line != "" {
			fmt.Fprintf(w, "%s%s\n", prefix, line)
		}
	}
}
