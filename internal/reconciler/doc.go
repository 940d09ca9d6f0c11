// Package reconciler implements the LOOM fiber reconciler.
//
// The reconciler turns successive element trees into the minimal set of
// Host Adapter calls that bring a live host tree in line with the latest
// tree, without holding the host for longer than an idle callback's budget.
//
// ARCHITECTURE:
//
// Two-phase generations:
//  1. Render(el, container) seeds a work-in-progress root and arms an idle
//     callback.
//  2. Render phase: each callback performs units of work (one fiber each)
//     while its deadline has budget, diffing children positionally against
//     the committed tree. No host mutation of attached nodes happens here;
//     new nodes are created detached.
//  3. Commit phase: once the cursor drains, deletions and then the
//     work-in-progress tree are applied in one uninterrupted pass, and the
//     work-in-progress tree becomes the committed tree.
//
// Arena-indexed fibers:
// Fibers live in a per-generation arena and refer to each other by index.
// The committed arena is frozen; work-in-progress fibers point into it via
// alternate indices. Committing swaps the arenas and releases the previous
// committed one, so at most two generations are reachable.
//
// State:
// The four slots (committed root, work-in-progress root, cursor, deletions)
// belong to one Reconciler, so independent containers use independent
// reconcilers.
//
// Concurrency:
// A Reconciler is single-threaded. Render, Flush and the idle callbacks must
// all run on one goroutine (idle.Loop guarantees this for its callbacks).
package reconciler
