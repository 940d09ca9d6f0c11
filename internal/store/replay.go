package store

import (
	"context"
	"fmt"

	"github.com/roach88/loom/internal/trace"
)

// SessionLog is a session with every commit's ops, in generation order.
type SessionLog struct {
	Session Session
	Commits []CommitLog
}

// CommitLog is one stored commit with its ops.
type CommitLog struct {
	Commit Commit
	Ops    []trace.Op
}

// Ops returns every op of the session in commit order.
func (l SessionLog) Ops() []trace.Op {
	var out []trace.Op
	for _, c := range l.Commits {
		out = append(out, c.Ops...)
	}
	return out
}

// ReplaySession loads a session's full op log and verifies every commit
// against its stored digest and id. A commit whose ops no longer hash to
// the stored values is reported as an error; the log is not returned.
func (s *Store) ReplaySession(ctx context.Context, sessionID string) (SessionLog, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return SessionLog{}, fmt.Errorf("replay session: %w", err)
	}
	commits, err := s.ReadCommits(ctx, sessionID)
	if err != nil {
		return SessionLog{}, fmt.Errorf("replay session: %w", err)
	}

	log := SessionLog{Session: sess, Commits: make([]CommitLog, 0, len(commits))}
	for _, c := range commits {
		ops, err := s.ReadOps(ctx, c.ID)
		if err != nil {
			return SessionLog{}, fmt.Errorf("replay session: %w", err)
		}
		if err := verifyCommit(c, ops); err != nil {
			return SessionLog{}, fmt.Errorf("replay session: %w", err)
		}
		log.Commits = append(log.Commits, CommitLog{Commit: c, Ops: ops})
	}
	return log, nil
}

func verifyCommit(c Commit, ops []trace.Op) error {
	if len(ops) != c.OpCount {
		return fmt.Errorf("commit %d: stored %d ops, found %d", c.Generation, c.OpCount, len(ops))
	}
	digest, err := trace.Digest(ops)
	if err != nil {
		return fmt.Errorf("commit %d: %w", c.Generation, err)
	}
	if digest != c.Digest {
		return fmt.Errorf("commit %d: digest mismatch: stored %s, computed %s", c.Generation, c.Digest, digest)
	}
	id, err := trace.CommitID(c.SessionID, c.Generation, digest)
	if err != nil {
		return fmt.Errorf("commit %d: %w", c.Generation, err)
	}
	if id != c.ID {
		return fmt.Errorf("commit %d: id mismatch: stored %s, computed %s", c.Generation, c.ID, id)
	}
	return nil
}
