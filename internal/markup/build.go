package markup

import (
	"strconv"
	"strings"

	"github.com/roach88/loom/internal/element"
)

const (
	keyTag      = "tag"
	keyProps    = "props"
	keyChildren = "children"

	templateChildren = "$children"
)

// builder turns raw values into elements. env holds the props of the
// template being expanded and is nil outside templates.
type builder struct {
	reg *Registry
	env element.Props
}

func (b *builder) element(r *raw, path string) (*element.Element, error) {
	obj, ok := r.value.(*object)
	if !ok {
		return nil, errorAt(r, path, "element must be a map, got %s", r.kind())
	}
	for _, k := range obj.keys {
		switch k {
		case keyTag, keyProps, keyChildren:
		default:
			return nil, errorAt(obj.fields[k], join(path, k), "unknown element key")
		}
	}

	tagRaw, ok := obj.get(keyTag)
	if !ok {
		return nil, errorAt(r, path, "tag is required")
	}
	name, ok := tagRaw.value.(string)
	if !ok || name == "" {
		return nil, errorAt(tagRaw, join(path, keyTag), "tag must be a non-empty string")
	}

	var props element.Props
	if pr, ok := obj.get(keyProps); ok {
		pobj, ok := pr.value.(*object)
		if !ok {
			return nil, errorAt(pr, join(path, keyProps), "props must be a map, got %s", pr.kind())
		}
		props = make(element.Props, len(pobj.keys))
		for _, k := range pobj.keys {
			ppath := join(join(path, keyProps), k)
			if k == element.ChildrenKey {
				return nil, errorAt(pobj.fields[k], ppath, "children belong under the children key")
			}
			v, err := b.prop(k, pobj.fields[k], ppath)
			if err != nil {
				return nil, err
			}
			props[k] = v
		}
	}

	var kids []any
	if cr, ok := obj.get(keyChildren); ok {
		list, ok := cr.value.([]*raw)
		if !ok {
			return nil, errorAt(cr, join(path, keyChildren), "children must be a list, got %s", cr.kind())
		}
		for i, c := range list {
			more, err := b.child(c, join(path, keyChildren)+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			kids = append(kids, more...)
		}
	}

	el, err := element.Create(b.tag(name), props, kids...)
	if err != nil {
		return nil, &DecodeError{Pos: r.pos, Path: path, Err: err}
	}
	return el, nil
}

func (b *builder) tag(name string) element.Tag {
	if c, ok := b.reg.Component(name); ok {
		return c
	}
	return element.HostTag(name)
}

func (b *builder) prop(key string, r *raw, path string) (element.Value, error) {
	switch v := r.value.(type) {
	case string:
		if ref, ok := b.reference(v); ok {
			val, found := b.env[ref]
			if !found || ref == element.ChildrenKey {
				return nil, errorAt(r, path, "template property $%s is not set", ref)
			}
			return val, nil
		}
		if element.IsListenerKey(key) {
			name, ok := strings.CutPrefix(v, "@")
			if !ok || name == "" {
				return nil, errorAt(r, path, "listeners are written as @name")
			}
			l, err := b.reg.Listener(name)
			if err != nil {
				return nil, &DecodeError{Pos: r.pos, Path: path, Err: err}
			}
			return l, nil
		}
		return element.String(unescape(v)), nil
	case int64:
		return element.Int(v), nil
	case bool:
		return element.Bool(v), nil
	default:
		return nil, errorAt(r, path, "property values must be scalars, got %s", r.kind())
	}
}

// child returns the Create arguments one raw child expands to: usually one,
// any number for "$children".
func (b *builder) child(r *raw, path string) ([]any, error) {
	switch v := r.value.(type) {
	case string:
		if b.env != nil && v == templateChildren {
			kids := b.env.Children()
			out := make([]any, len(kids))
			for i, k := range kids {
				out[i] = k
			}
			return out, nil
		}
		if ref, ok := b.reference(v); ok {
			val, found := b.env[ref]
			if !found {
				return nil, errorAt(r, path, "template property $%s is not set", ref)
			}
			return []any{element.Format(val)}, nil
		}
		return []any{unescape(v)}, nil
	case int64, bool:
		return []any{v}, nil
	case *object:
		el, err := b.element(r, path)
		if err != nil {
			return nil, err
		}
		return []any{el}, nil
	default:
		return nil, errorAt(r, path, "child must be an element or a scalar, got %s", r.kind())
	}
}

// reference reports whether s is a "$name" template reference. Outside
// templates nothing is a reference.
func (b *builder) reference(s string) (string, bool) {
	if b.env == nil || len(s) < 2 || s[0] != '$' || s[1] == '$' {
		return "", false
	}
	return s[1:], true
}

func unescape(s string) string {
	if strings.HasPrefix(s, "$$") {
		return s[1:]
	}
	return s
}
