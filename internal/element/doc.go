// Package element provides the immutable element model for LOOM.
//
// An element describes what should exist in the host tree: a tag plus a
// property map whose reserved "children" entry holds the ordered child
// elements. Elements are produced fresh on every render request and are
// never mutated after construction.
//
// This package imports nothing internal; every other package builds on it.
//
// Key design constraints:
//   - Tags are a sealed set: HostTag (compared by value), *Component
//     (compared by pointer identity) and the Text sentinel
//   - Property values are a sealed set so that equality is always defined
//   - The children key is never applied to a host node
package element
