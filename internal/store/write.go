package store

import (
	"context"
	"fmt"

	"github.com/roach88/loom/internal/trace"
)

// CreateSession inserts a session and assigns it the next session seq.
// Re-creating an existing id is a no-op that returns the stored session.
func (s *Store) CreateSession(ctx context.Context, id, name string) (Session, error) {
	if id == "" {
		return Session{}, fmt.Errorf("create session: id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, seq)
		SELECT ?, ?, COALESCE(MAX(seq), 0) + 1 FROM sessions
		ON CONFLICT(id) DO NOTHING
	`, id, name)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	return s.ReadSession(ctx, id)
}

// WriteCommit stores one commit and its ops atomically and returns the
// commit record. The id and digest are computed from the ops.
//
// Writing the same ops for the same session and generation again is a no-op.
// Writing different ops for a generation that is already stored fails.
func (s *Store) WriteCommit(ctx context.Context, sessionID string, generation int64, ops []trace.Op) (Commit, error) {
	digest, err := trace.Digest(ops)
	if err != nil {
		return Commit{}, fmt.Errorf("write commit: %w", err)
	}
	id, err := trace.CommitID(sessionID, generation, digest)
	if err != nil {
		return Commit{}, fmt.Errorf("write commit: %w", err)
	}
	c := Commit{
		ID:         id,
		SessionID:  sessionID,
		Generation: generation,
		Digest:     digest,
		OpCount:    len(ops),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Commit{}, fmt.Errorf("write commit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commits (id, session_id, generation, digest, op_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.SessionID, c.Generation, c.Digest, c.OpCount)
	if err != nil {
		return Commit{}, fmt.Errorf("write commit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already stored.
		return c, nil
	}

	for _, op := range ops {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ops (commit_id, seq, kind, node, parent, name, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, op.Seq, string(op.Kind), op.Node, op.Parent, op.Name, op.Value)
		if err != nil {
			return Commit{}, fmt.Errorf("write commit: op %d: %w", op.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Commit{}, fmt.Errorf("write commit: %w", err)
	}
	return c, nil
}
