package host

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/trace"
)

// Rebuild reconstructs the host trees described by a recorded op list.
//
// Nodes referenced without a create op are treated as containers and are
// returned in order of first reference. Property values come back as
// strings and listeners as named placeholders, so Dump of a rebuilt tree
// matches Dump of the live tree for the same ops.
func Rebuild(ops []trace.Op) ([]*MemNode, error) {
	r := rebuilder{nodes: make(map[string]*MemNode)}
	for _, op := range ops {
		if err := r.apply(op); err != nil {
			return nil, fmt.Errorf("rebuild: op %d (%s): %w", op.Seq, op, err)
		}
	}
	return r.roots, nil
}

type rebuilder struct {
	nodes map[string]*MemNode
	roots []*MemNode
}

func (r *rebuilder) apply(op trace.Op) error {
	if op.Kind == trace.KindCreate {
		if _, ok := r.nodes[op.Node]; ok {
			return fmt.Errorf("%s created twice", op.Node)
		}
		n, err := parseLabel(op.Node)
		if err != nil {
			return err
		}
		r.nodes[op.Node] = n
		return nil
	}

	n, err := r.lookup(op.Node)
	if err != nil {
		return err
	}
	switch op.Kind {
	case trace.KindSet:
		n.Props[op.Name] = element.String(op.Value)
	case trace.KindClear:
		delete(n.Props, op.Name)
	case trace.KindListen:
		n.Listeners[op.Name] = element.On(listenerName(op.Value), nil)
	case trace.KindUnlisten:
		delete(n.Listeners, op.Name)
	case trace.KindAppend:
		p, err := r.lookup(op.Parent)
		if err != nil {
			return err
		}
		if n.Parent != nil {
			detach(n.Parent, n)
		}
		n.Parent = p
		p.Children = append(p.Children, n)
	case trace.KindRemove:
		p, err := r.lookup(op.Parent)
		if err != nil {
			return err
		}
		if n.Parent != p {
			return fmt.Errorf("%s is not a child of %s", n.Label(), p.Label())
		}
		detach(p, n)
		n.Parent = nil
	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
	return nil
}

// lookup returns the node for a label, creating a container the first time
// an uncreated label is seen.
func (r *rebuilder) lookup(label string) (*MemNode, error) {
	if n, ok := r.nodes[label]; ok {
		return n, nil
	}
	n, err := parseLabel(label)
	if err != nil {
		return nil, err
	}
	r.nodes[label] = n
	r.roots = append(r.roots, n)
	return n, nil
}

// parseLabel splits "div#2" into tag and id. The tag may itself contain
// '#', as in "#text#3".
func parseLabel(label string) (*MemNode, error) {
	i := strings.LastIndexByte(label, '#')
	if i <= 0 {
		return nil, fmt.Errorf("malformed node label %q", label)
	}
	id, err := strconv.Atoi(label[i+1:])
	if err != nil {
		return nil, fmt.Errorf("malformed node label %q", label)
	}
	return &MemNode{
		ID:        id,
		Tag:       label[:i],
		Props:     make(map[string]element.Value),
		Listeners: make(map[string]*element.Listener),
	}, nil
}

// listenerName recovers the name from a formatted listener ("<fn inc>").
func listenerName(formatted string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(formatted, "<fn"), ">")
	return strings.TrimSpace(s)
}
