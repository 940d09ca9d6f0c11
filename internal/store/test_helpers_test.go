package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/loom/internal/trace"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a session or fails the test.
func createTestSession(t *testing.T, s *Store, id string) Session {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), id, "test")
	if err != nil {
		t.Fatalf("CreateSession(%q) failed: %v", id, err)
	}
	return sess
}

// mountOps is the op list of mounting <div id=foo>hi</div> into root#1.
func mountOps() []trace.Op {
	return []trace.Op{
		{Seq: 1, Kind: trace.KindCreate, Node: "div#2"},
		{Seq: 2, Kind: trace.KindSet, Node: "div#2", Name: "id", Value: "foo"},
		{Seq: 3, Kind: trace.KindCreate, Node: "#text#3"},
		{Seq: 4, Kind: trace.KindSet, Node: "#text#3", Name: "nodeValue", Value: "hi"},
		{Seq: 5, Kind: trace.KindAppend, Parent: "div#2", Node: "#text#3"},
		{Seq: 6, Kind: trace.KindAppend, Parent: "root#1", Node: "div#2"},
	}
}

// updateOps is the op list of changing the text to "bye".
func updateOps() []trace.Op {
	return []trace.Op{
		{Seq: 7, Kind: trace.KindSet, Node: "#text#3", Name: "nodeValue", Value: "bye"},
	}
}
