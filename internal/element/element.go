package element

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// NodeValueKey is the property a text element stores its text under.
const NodeValueKey = "nodeValue"

// Props maps property names to values. The ChildrenKey entry is always a
// Children value on elements built by this package.
type Props map[string]Value

// Children returns the child list, or nil if none is set.
func (p Props) Children() Children {
	c, _ := p[ChildrenKey].(Children)
	return c
}

// SortedKeys returns the keys in byte order for deterministic iteration.
func (p Props) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Element is an immutable description of one node of the desired tree.
type Element struct {
	Tag   Tag
	Props Props
}

// Children returns the element's children.
func (e *Element) Children() Children {
	if e == nil {
		return nil
	}
	return e.Props.Children()
}

// Create builds an element from a tag, properties and children.
//
// Each child must be an *Element or a primitive coercible to text (string,
// integer, bool, fmt.Stringer); primitives become Text elements. Nil entries
// are dropped so conditional children can be written inline. Any other
// child shape is rejected with a *MalformedError.
//
// The props map is copied; a "children" key in props is ignored in favour of
// the children argument.
func Create(tag Tag, props Props, children ...any) (*Element, error) {
	if tag == nil {
		return nil, &MalformedError{Index: -1, Message: "element tag is nil"}
	}
	if c, ok := tag.(*Component); ok && (c == nil || c.Render == nil) {
		return nil, &MalformedError{Index: -1, Message: "component has no render function"}
	}

	kids := make(Children, 0, len(children))
	for i, child := range children {
		el, err := coerceChild(child)
		if err != nil {
			return nil, &MalformedError{Index: i, Message: err.Error()}
		}
		if el != nil {
			kids = append(kids, el)
		}
	}

	p := make(Props, len(props)+1)
	for k, v := range props {
		if k == ChildrenKey {
			continue
		}
		if v == nil {
			return nil, &MalformedError{Index: -1, Message: fmt.Sprintf("property %q is nil", k)}
		}
		if err := checkListener(k, v); err != nil {
			return nil, &MalformedError{Index: -1, Message: err.Error()}
		}
		p[k] = v
	}
	p[ChildrenKey] = kids

	return &Element{Tag: tag, Props: p}, nil
}

// MustCreate is like Create but panics on a malformed element.
// Intended for literals in tests and examples.
func MustCreate(tag Tag, props Props, children ...any) *Element {
	el, err := Create(tag, props, children...)
	if err != nil {
		panic(err)
	}
	return el
}

// TextElement builds a text element. The text is NFC normalized so that
// equal-looking strings compare equal during diffing.
func TextElement(text string) *Element {
	return &Element{
		Tag: Text,
		Props: Props{
			NodeValueKey: String(norm.NFC.String(text)),
			ChildrenKey:  Children{},
		},
	}
}

// checkListener keeps listener keys and listener values paired.
func checkListener(key string, v Value) error {
	l, isListener := v.(*Listener)
	switch {
	case IsListenerKey(key) && (!isListener || l == nil):
		return fmt.Errorf("property %q: listener expected, got %T", key, v)
	case !IsListenerKey(key) && isListener:
		return fmt.Errorf("property %q: listener value under a non-listener key", key)
	}
	return nil
}

func coerceChild(child any) (*Element, error) {
	switch c := child.(type) {
	case nil:
		return nil, nil
	case *Element:
		if c == nil {
			return nil, nil
		}
		return c, nil
	case string:
		return TextElement(c), nil
	case int:
		return TextElement(fmt.Sprintf("%d", c)), nil
	case int64:
		return TextElement(fmt.Sprintf("%d", c)), nil
	case bool:
		return TextElement(fmt.Sprintf("%t", c)), nil
	case fmt.Stringer:
		return TextElement(c.String()), nil
	default:
		return nil, fmt.Errorf("unsupported child type %T", child)
	}
}
