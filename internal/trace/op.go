package trace

import (
	"fmt"
	"strings"
)

// Kind is the host operation an Op records.
type Kind string

const (
	KindCreate   Kind = "create"
	KindSet      Kind = "set"
	KindClear    Kind = "clear"
	KindListen   Kind = "listen"
	KindUnlisten Kind = "unlisten"
	KindAppend   Kind = "append"
	KindRemove   Kind = "remove"
)

// Kinds lists every kind in a fixed order.
var Kinds = []Kind{KindCreate, KindSet, KindClear, KindListen, KindUnlisten, KindAppend, KindRemove}

// IsMutation reports whether the kind changes an existing node or the shape
// of the tree. Node creation is not a mutation.
func (k Kind) IsMutation() bool {
	return k != KindCreate
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown op kind %q", s)
}

// Op is one recorded host call.
//
// Node and Parent are node labels assigned by the recording host, e.g.
// "div#2". Name is the property or event name; Value is the formatted value.
type Op struct {
	Seq    int64  `json:"seq"`
	Kind   Kind   `json:"kind"`
	Node   string `json:"node"`
	Parent string `json:"parent,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// String renders the op without its sequence number:
//
//	create div#2
//	set div#2 id=foo
//	clear div#2 title
//	listen button#3 click <fn inc>
//	append root#1 div#2
func (o Op) String() string {
	switch o.Kind {
	case KindCreate:
		return fmt.Sprintf("create %s", o.Node)
	case KindSet:
		return fmt.Sprintf("set %s %s=%s", o.Node, o.Name, o.Value)
	case KindClear:
		return fmt.Sprintf("clear %s %s", o.Node, o.Name)
	case KindListen, KindUnlisten:
		return fmt.Sprintf("%s %s %s %s", o.Kind, o.Node, o.Name, o.Value)
	case KindAppend, KindRemove:
		return fmt.Sprintf("%s %s %s", o.Kind, o.Parent, o.Node)
	default:
		return fmt.Sprintf("%s %s", o.Kind, o.Node)
	}
}

// Format renders ops one per line, each line terminated by a newline.
func Format(ops []Op) string {
	var b strings.Builder
	for _, op := range ops {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Count returns how many ops have the given kind.
func Count(ops []Op, kind Kind) int {
	n := 0
	for _, op := range ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Mutations filters out node creations.
func Mutations(ops []Op) []Op {
	var out []Op
	for _, op := range ops {
		if op.Kind.IsMutation() {
			out = append(out, op)
		}
	}
	return out
}
