package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/host"
	"github.com/roach88/loom/internal/store"
	"github.com/roach88/loom/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Latest   bool
	Kind     string // optional - filter ops to one kind
}

// TraceResult holds the replay of one session.
type TraceResult struct {
	Session store.Session  `json:"session"`
	Commits []CommitOutput `json:"commits"`
	Tree    string         `json:"tree"`
	Stats   map[string]int `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded render sessions",
		Long: `Inspect render sessions recorded with "loom render --db".

Without --session, lists the recorded sessions. With --session (or --latest),
replays the session: every stored commit is verified against its digest, its
ops are printed in order, and the host tree is rebuilt from the ops alone.

Examples:
  loom trace --db ./loom.db
  loom trace --db ./loom.db --latest
  loom trace --db ./loom.db --session 0192f7a1-... --kind set
  loom trace --db ./loom.db --latest --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to replay")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "replay the most recent session")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only print ops of this kind")
	cmd.MarkFlagsMutuallyExclusive("session", "latest")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	var kind trace.Kind
	if opts.Kind != "" {
		k, err := trace.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		kind = k
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" && !opts.Latest {
		return listSessions(ctx, st, formatter)
	}

	id := opts.Session
	if opts.Latest {
		s, err := st.LatestSession(ctx)
		if errors.Is(err, store.ErrNotFound) {
			_ = formatter.Error(ErrCodeNotFound, "no sessions recorded", nil)
			return NewExitError(ExitCommandError, "no sessions recorded")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read sessions", err)
		}
		id = s.ID
	}

	formatter.VerboseLog("Replaying session %s", id)
	log, err := st.ReplaySession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", id), nil)
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	result, err := buildTrace(log, kind)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	if formatter.JSON() {
		return formatter.Response(CLIResponse{Status: "ok", Data: result, Session: result.Session.ID})
	}
	writeTraceText(formatter.Writer, result)
	return nil
}

// buildTrace formats a verified session log and rebuilds its host tree.
// The kind filter only affects the printed ops; the tree is rebuilt from all
// of them.
func buildTrace(log store.SessionLog, kind trace.Kind) (TraceResult, error) {
	result := TraceResult{
		Session: log.Session,
		Commits: make([]CommitOutput, 0, len(log.Commits)),
		Stats:   map[string]int{},
	}

	for _, c := range log.Commits {
		ops := make([]string, 0, len(c.Ops))
		for _, op := range c.Ops {
			result.Stats[string(op.Kind)]++
			if kind == "" || op.Kind == kind {
				ops = append(ops, op.String())
			}
		}
		result.Commits = append(result.Commits, CommitOutput{
			Generation: c.Commit.Generation,
			ID:         c.Commit.ID,
			Ops:        ops,
		})
	}

	roots, err := host.Rebuild(log.Ops())
	if err != nil {
		return result, err
	}
	var b strings.Builder
	for _, r := range roots {
		b.WriteString(host.Dump(r))
	}
	result.Tree = b.String()
	return result, nil
}

func listSessions(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	if f.JSON() {
		if sessions == nil {
			sessions = []store.Session{}
		}
		return f.Success(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(f.Writer, "%3d  %s  %-20s %d commits\n", s.Seq, s.ID, s.Name, s.Commits)
	}
	return nil
}

func writeTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "session %s (%s)\n", result.Session.ID, result.Session.Name)
	for _, c := range result.Commits {
		fmt.Fprintf(w, "  commit generation %d %s\n", c.Generation, shortID(c.ID))
		for _, op := range c.Ops {
			fmt.Fprintf(w, "    %s\n", op)
		}
	}

	fmt.Fprintln(w, "tree:")
	writeIndented(w, result.Tree, "  ")

	kinds := make([]string, 0, len(result.Stats))
	for k := range result.Stats {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, result.Stats[k]))
	}
	fmt.Fprintf(w, "stats: %d commits, %s\n", len(result.Commits), strings.Join(parts, " "))
}

// shortID abbreviates a content-addressed commit id for text output.
func shortID(id string) string {
	const n = 12
	if len(id) <= n {
		return id
	}
	return id[:n]
}
