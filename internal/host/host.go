// Package host defines the Host Adapter boundary of the reconciler and an
// in-memory implementation of it.
//
// The reconciler decides which host calls to make and when; a Host carries
// them out. Any error returned by a Host is fatal to the operation that
// issued it.
package host

import "github.com/roach88/loom/internal/element"

// Node is an opaque host node handle. The reconciler never inspects it.
type Node any

// Host is the capability set the reconciler consumes.
type Host interface {
	// CreateNode creates a detached node for a host tag or the text sentinel.
	CreateNode(tag element.Tag) (Node, error)

	SetProperty(n Node, name string, v element.Value) error
	ClearProperty(n Node, name string) error

	// AddListener and RemoveListener take the event name, already derived
	// from the property key ("onClick" -> "click").
	AddListener(n Node, event string, l *element.Listener) error
	RemoveListener(n Node, event string, l *element.Listener) error

	AppendChild(parent, child Node) error
	RemoveChild(parent, child Node) error
}
