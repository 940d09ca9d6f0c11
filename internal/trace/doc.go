// Package trace records host operations issued by the reconciler.
//
// A trace is the ordered list of Host Adapter calls made during one or more
// commits. Traces are what tests, the scenario harness, the CLI and the store
// all agree on, so they have two stable encodings:
//
//   - Format: one operation per line, used for golden files
//   - MarshalCanonical: RFC 8785 style canonical JSON (sorted keys, NFC
//     strings, no floats, no nulls), used for content-addressed digests
//
// Sequence numbers come from a logical counter on the recording host, never
// from wall-clock time.
package trace
