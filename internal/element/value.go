package element

import (
	"strconv"
	"strings"
)

// ChildrenKey is the reserved property holding an element's children.
const ChildrenKey = "children"

// listenerPrefix marks listener properties, e.g. "onClick".
const listenerPrefix = "on"

// Value is a sealed interface for property values.
// Only String, Int, Bool, *Listener and Children implement it.
type Value interface {
	value()
}

// String is a string property value.
type String string

func (String) value() {}

// Int is an integer property value.
type Int int64

func (Int) value() {}

// Bool is a boolean property value.
type Bool bool

func (Bool) value() {}

// Children is the ordered child list stored under ChildrenKey.
type Children []*Element

func (Children) value() {}

// Event is what a host passes to a listener.
type Event struct {
	Type   string
	Target any
	Data   map[string]string
}

// Listener is an event handler property value.
// Listeners compare by pointer identity: a new *Listener is a changed value
// even when it wraps the same function.
type Listener struct {
	Name string
	Fn   func(Event)
}

func (*Listener) value() {}

// On creates a listener value.
func On(name string, fn func(Event)) *Listener {
	return &Listener{Name: name, Fn: fn}
}

// Invoke calls the handler if one is set.
func (l *Listener) Invoke(ev Event) {
	if l != nil && l.Fn != nil {
		l.Fn(ev)
	}
}

// IsListenerKey reports whether a property key names an event listener.
func IsListenerKey(key string) bool {
	return len(key) > len(listenerPrefix) && strings.HasPrefix(key, listenerPrefix)
}

// IsAttributeKey reports whether a property key is applied to the host as a
// plain attribute.
func IsAttributeKey(key string) bool {
	return key != ChildrenKey && !IsListenerKey(key)
}

// EventName derives the host event name from a listener key:
// "onClick" becomes "click".
func EventName(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, listenerPrefix))
}

// Equal reports whether two property values are the same for diffing.
// Children values never compare equal; they are not diffed.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case *Listener:
		bv, ok := b.(*Listener)
		return ok && av == bv
	default:
		return false
	}
}

// Format renders a value for traces and dumps.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Bool:
		return strconv.FormatBool(bool(val))
	case *Listener:
		if val == nil || val.Name == "" {
			return "<fn>"
		}
		return "<fn " + val.Name + ">"
	case Children:
		return "[" + strconv.Itoa(len(val)) + " children]"
	default:
		return "?"
	}
}
