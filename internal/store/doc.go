// Package store provides SQLite-backed storage for render sessions.
//
// A session is one reconciler driving one container. Each successful commit
// is stored with the host ops it issued:
//   - sessions: id (UUIDv7 in production), name, seq
//   - commits: content-addressed id, generation, op digest, op count
//   - ops: one row per host call, keyed by (commit_id, seq)
//
// # Ordering
//
// Every read is ordered by logical counters (session seq, commit
// generation, op seq) with id as a binary-collated tie breaker, so two
// reads of the same database always agree.
//
// # Identity
//
// Commit ids are computed by trace.CommitID from the session id, the
// generation and the trace.Digest of the op list. Writes use
// ON CONFLICT DO NOTHING, so recording the same session twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
