// Package idle provides the idle-callback capability the reconciler's
// scheduler is driven by.
//
// A Scheduler accepts callbacks and eventually invokes each with a fresh,
// independent Deadline. The reconciler checks the deadline between units of
// work and re-registers itself when it runs out of budget; it never blocks.
//
// Loop is the implementation used by the CLI, the harness and tests. It is a
// single-goroutine FIFO: every callback and posted task runs on the goroutine
// that calls Run or Drain, so the single-threaded reconciler can be driven
// from it without locking. Frame deadlines are measured on an injected
// Clock, which makes budget exhaustion deterministic under test.
package idle
