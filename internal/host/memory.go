package host

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/trace"
)

// Compile-time check.
var _ Host = (*Memory)(nil)

// ErrInjected is the default error returned by calls armed with FailOn.
var ErrInjected = errors.New("injected host failure")

// MemNode is a node of the in-memory host tree.
type MemNode struct {
	ID        int
	Tag       string
	Props     map[string]element.Value
	Listeners map[string]*element.Listener
	Children  []*MemNode
	Parent    *MemNode
}

// Label is the stable name used in traces, e.g. "div#2".
func (n *MemNode) Label() string {
	return n.Tag + "#" + strconv.Itoa(n.ID)
}

// Text returns the node value of a text node.
func (n *MemNode) Text() string {
	return element.Format(n.Props[element.NodeValueKey])
}

type failure struct {
	kind trace.Kind
	nth  int
	err  error
}

// Memory is an in-memory Host that records every call.
//
// Node ids and op sequence numbers are assigned by counters so that the same
// call sequence always produces the same labels and trace.
//
// Memory is not safe for concurrent use; neither is the reconciler.
type Memory struct {
	nextID   int
	seq      int64
	ops      []trace.Op
	calls    map[trace.Kind]int
	failures []failure
}

// NewMemory creates an empty in-memory host.
func NewMemory() *Memory {
	return &Memory{calls: make(map[trace.Kind]int)}
}

// NewContainer creates a detached container node. It is not recorded.
func (m *Memory) NewContainer(tag string) *MemNode {
	m.nextID++
	return &MemNode{
		ID:        m.nextID,
		Tag:       tag,
		Props:     make(map[string]element.Value),
		Listeners: make(map[string]*element.Listener),
	}
}

// FailOn makes the nth upcoming call of the given kind return err
// (ErrInjected when err is nil). The failing call is not applied and not
// recorded.
func (m *Memory) FailOn(kind trace.Kind, nth int, err error) {
	if err == nil {
		err = ErrInjected
	}
	m.failures = append(m.failures, failure{kind: kind, nth: m.calls[kind] + nth, err: err})
}

// Ops returns every recorded op since creation or the last TakeOps.
func (m *Memory) Ops() []trace.Op {
	out := make([]trace.Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// TakeOps returns the recorded ops and clears the record.
func (m *Memory) TakeOps() []trace.Op {
	out := m.ops
	m.ops = nil
	return out
}

// CreateNode implements Host.
func (m *Memory) CreateNode(tag element.Tag) (Node, error) {
	if err := m.check(trace.KindCreate); err != nil {
		return nil, err
	}
	var name string
	switch t := tag.(type) {
	case element.HostTag:
		name = string(t)
	default:
		if tag != element.Text {
			return nil, fmt.Errorf("create node: %s is not a host tag", element.TagName(tag))
		}
		name = element.TagName(tag)
	}
	n := m.NewContainer(name)
	m.record(trace.Op{Kind: trace.KindCreate, Node: n.Label()})
	return n, nil
}

// SetProperty implements Host.
func (m *Memory) SetProperty(node Node, name string, v element.Value) error {
	n, err := m.node(node, "set property")
	if err != nil {
		return err
	}
	if err := m.check(trace.KindSet); err != nil {
		return err
	}
	n.Props[name] = v
	m.record(trace.Op{Kind: trace.KindSet, Node: n.Label(), Name: name, Value: element.Format(v)})
	return nil
}

// ClearProperty implements Host.
func (m *Memory) ClearProperty(node Node, name string) error {
	n, err := m.node(node, "clear property")
	if err != nil {
		return err
	}
	if err := m.check(trace.KindClear); err != nil {
		return err
	}
	delete(n.Props, name)
	m.record(trace.Op{Kind: trace.KindClear, Node: n.Label(), Name: name})
	return nil
}

// AddListener implements Host.
func (m *Memory) AddListener(node Node, event string, l *element.Listener) error {
	n, err := m.node(node, "add listener")
	if err != nil {
		return err
	}
	if err := m.check(trace.KindListen); err != nil {
		return err
	}
	n.Listeners[event] = l
	m.record(trace.Op{Kind: trace.KindListen, Node: n.Label(), Name: event, Value: element.Format(l)})
	return nil
}

// RemoveListener implements Host. Removing a handler that is not registered
// is recorded but otherwise a no-op.
func (m *Memory) RemoveListener(node Node, event string, l *element.Listener) error {
	n, err := m.node(node, "remove listener")
	if err != nil {
		return err
	}
	if err := m.check(trace.KindUnlisten); err != nil {
		return err
	}
	if n.Listeners[event] == l {
		delete(n.Listeners, event)
	}
	m.record(trace.Op{Kind: trace.KindUnlisten, Node: n.Label(), Name: event, Value: element.Format(l)})
	return nil
}

// AppendChild implements Host. A child that is already attached elsewhere is
// moved.
func (m *Memory) AppendChild(parent, child Node) error {
	p, err := m.node(parent, "append child")
	if err != nil {
		return err
	}
	c, err := m.node(child, "append child")
	if err != nil {
		return err
	}
	if err := m.check(trace.KindAppend); err != nil {
		return err
	}
	if c.Parent != nil {
		detach(c.Parent, c)
	}
	c.Parent = p
	p.Children = append(p.Children, c)
	m.record(trace.Op{Kind: trace.KindAppend, Parent: p.Label(), Node: c.Label()})
	return nil
}

// RemoveChild implements Host.
func (m *Memory) RemoveChild(parent, child Node) error {
	p, err := m.node(parent, "remove child")
	if err != nil {
		return err
	}
	c, err := m.node(child, "remove child")
	if err != nil {
		return err
	}
	if c.Parent != p {
		return fmt.Errorf("remove child: %s is not a child of %s", c.Label(), p.Label())
	}
	if err := m.check(trace.KindRemove); err != nil {
		return err
	}
	detach(p, c)
	c.Parent = nil
	m.record(trace.Op{Kind: trace.KindRemove, Parent: p.Label(), Node: c.Label()})
	return nil
}

// Dispatch invokes the listener registered for event on node, if any.
// Returns false when nothing is listening.
func (m *Memory) Dispatch(n *MemNode, event string, data map[string]string) bool {
	l, ok := n.Listeners[event]
	if !ok {
		return false
	}
	l.Invoke(element.Event{Type: event, Target: n, Data: data})
	return true
}

// Find returns the first node in pre-order under root whose label or tag
// matches name.
func Find(root *MemNode, name string) *MemNode {
	if root == nil {
		return nil
	}
	if root.Label() == name || root.Tag == name {
		return root
	}
	for _, c := range root.Children {
		if found := Find(c, name); found != nil {
			return found
		}
	}
	return nil
}

// Dump renders the subtree under n, one node per line, children indented by
// two spaces:
//
//	root#1
//	  div#2 id=foo @click
//	    #text#3 "hello"
func Dump(n *MemNode) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n *MemNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Label())
	if n.Tag == element.TagName(element.Text) {
		fmt.Fprintf(b, " %q", n.Text())
	} else {
		keys := make([]string, 0, len(n.Props))
		for k := range n.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%s", k, element.Format(n.Props[k]))
		}
	}
	events := make([]string, 0, len(n.Listeners))
	for ev := range n.Listeners {
		events = append(events, ev)
	}
	sort.Strings(events)
	for _, ev := range events {
		b.WriteString(" @" + ev)
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		dump(b, c, depth+1)
	}
}

func detach(p, c *MemNode) {
	for i, x := range p.Children {
		if x == c {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}

func (m *Memory) node(n Node, op string) (*MemNode, error) {
	mn, ok := n.(*MemNode)
	if !ok || mn == nil {
		return nil, fmt.Errorf("%s: not a memory node: %T", op, n)
	}
	return mn, nil
}

// check counts the call and returns the armed failure for it, if any.
func (m *Memory) check(kind trace.Kind) error {
	m.calls[kind]++
	for i, f := range m.failures {
		if f.kind == kind && f.nth == m.calls[kind] {
			m.failures = append(m.failures[:i], m.failures[i+1:]...)
			return fmt.Errorf("%s: %w", kind, f.err)
		}
	}
	return nil
}

func (m *Memory) record(op trace.Op) {
	m.seq++
	op.Seq = m.seq
	m.ops = append(m.ops, op)
}
