package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/loom/internal/trace"
)

// ErrNotFound is returned when a session or commit does not exist.
var ErrNotFound = errors.New("not found")

// Session is a stored render session.
type Session struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Seq     int64  `json:"seq"`
	Commits int    `json:"commits"`
}

// Commit is a stored commit without its ops.
type Commit struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Generation int64  `json:"generation"`
	Digest     string `json:"digest"`
	OpCount    int    `json:"op_count"`
}

const sessionColumns = `
	SELECT s.id, s.name, s.seq, COUNT(c.id)
	FROM sessions s
	LEFT JOIN commits c ON c.session_id = s.id
`

// ReadSessions returns every session ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, sessionColumns+`
		GROUP BY s.id
		ORDER BY s.seq ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Seq, &sess.Commits); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns one session. Returns an error wrapping ErrNotFound
// if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, sessionColumns+`
		WHERE s.id = ?
		GROUP BY s.id
	`, id).Scan(&sess.ID, &sess.Name, &sess.Seq, &sess.Commits)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// LatestSession returns the session with the highest seq.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sessions ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("latest session: %w", ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("latest session: %w", err)
	}
	return s.ReadSession(ctx, id)
}

// ReadCommits returns a session's commits ordered by generation.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadCommits(ctx context.Context, sessionID string) ([]Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, generation, digest, op_count
		FROM commits
		WHERE session_id = ?
		ORDER BY generation ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Generation, &c.Digest, &c.OpCount); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// ReadOps returns a commit's ops ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadOps(ctx context.Context, commitID string) ([]trace.Op, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, node, parent, name, value
		FROM ops
		WHERE commit_id = ?
		ORDER BY seq ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	ops := []trace.Op{}
	for rows.Next() {
		var op trace.Op
		var kind string
		if err := rows.Scan(&op.Seq, &kind, &op.Node, &op.Parent, &op.Name, &op.Value); err != nil {
			return nil, fmt.Errorf("scan op: %w", err)
		}
		if op.Kind, err = trace.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("scan op %d: %w", op.Seq, err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ops: %w", err)
	}
	return ops, nil
}

// CountOps returns how many ops of each kind a session issued.
func (s *Store) CountOps(ctx context.Context, sessionID string) (map[trace.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.kind, COUNT(*)
		FROM ops o
		JOIN commits c ON o.commit_id = c.id
		WHERE c.session_id = ?
		GROUP BY o.kind
		ORDER BY o.kind COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("count ops: %w", err)
	}
	defer rows.Close()

	counts := make(map[trace.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan op count: %w", err)
		}
		counts[trace.Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate op counts: %w", err)
	}
	return counts, nil
}
