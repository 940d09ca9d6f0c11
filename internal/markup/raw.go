package markup

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// raw is a format-neutral decoded value: string, int64, bool, []*raw or
// *object. Floats and nulls never make it this far.
type raw struct {
	pos   string
	value any
}

// object keeps mapping keys in source order.
type object struct {
	keys   []string
	fields map[string]*raw
}

func (o *object) get(key string) (*raw, bool) {
	r, ok := o.fields[key]
	return r, ok
}

func (r *raw) kind() string {
	switch r.value.(type) {
	case string:
		return "string"
	case int64:
		return "int"
	case bool:
		return "bool"
	case []*raw:
		return "list"
	case *object:
		return "map"
	default:
		return fmt.Sprintf("%T", r.value)
	}
}

// fromYAML converts a yaml.v3 node tree.
func fromYAML(n *yaml.Node, file, path string) (*raw, error) {
	pos := yamlPos(n, file)

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, &DecodeError{Pos: pos, Path: path, Message: "empty document"}
		}
		return fromYAML(n.Content[0], file, path)

	case yaml.AliasNode:
		return fromYAML(n.Alias, file, path)

	case yaml.ScalarNode:
		switch n.Tag {
		case "!!str":
			return &raw{pos: pos, value: n.Value}, nil
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return nil, &DecodeError{Pos: pos, Path: path, Message: "integer out of range", Err: err}
			}
			return &raw{pos: pos, value: i}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, &DecodeError{Pos: pos, Path: path, Err: err}
			}
			return &raw{pos: pos, value: b}, nil
		case "!!float":
			return nil, &DecodeError{Pos: pos, Path: path, Message: fmt.Sprintf("floats are not allowed: %s", n.Value)}
		case "!!null":
			return nil, &DecodeError{Pos: pos, Path: path, Message: "null is not allowed"}
		default:
			return nil, &DecodeError{Pos: pos, Path: path, Message: fmt.Sprintf("unsupported scalar tag %s", n.Tag)}
		}

	case yaml.SequenceNode:
		list := make([]*raw, 0, len(n.Content))
		for i, c := range n.Content {
			r, err := fromYAML(c, file, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			list = append(list, r)
		}
		return &raw{pos: pos, value: list}, nil

	case yaml.MappingNode:
		obj := &object{fields: make(map[string]*raw, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, &DecodeError{Pos: yamlPos(k, file), Path: path, Message: "mapping keys must be scalars"}
			}
			if _, dup := obj.fields[k.Value]; dup {
				return nil, &DecodeError{Pos: yamlPos(k, file), Path: path, Message: fmt.Sprintf("duplicate key %q", k.Value)}
			}
			r, err := fromYAML(v, file, join(path, k.Value))
			if err != nil {
				return nil, err
			}
			obj.keys = append(obj.keys, k.Value)
			obj.fields[k.Value] = r
		}
		return &raw{pos: pos, value: obj}, nil

	default:
		return nil, &DecodeError{Pos: pos, Path: path, Message: fmt.Sprintf("unsupported YAML node kind %d", n.Kind)}
	}
}

func yamlPos(n *yaml.Node, file string) string {
	if n.Line == 0 {
		return file
	}
	return fmt.Sprintf("%s:%d:%d", file, n.Line, n.Column)
}

// fromCUE converts a concrete CUE value.
func fromCUE(v cue.Value, path string) (*raw, error) {
	pos := cuePos(v.Pos())

	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, cueError(err, path)
		}
		return &raw{pos: pos, value: s}, nil

	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, &DecodeError{Pos: pos, Path: path, Message: "integer out of range", Err: err}
		}
		return &raw{pos: pos, value: i}, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, cueError(err, path)
		}
		return &raw{pos: pos, value: b}, nil

	case cue.FloatKind:
		return nil, &DecodeError{Pos: pos, Path: path, Message: "floats are not allowed"}

	case cue.NullKind:
		return nil, &DecodeError{Pos: pos, Path: path, Message: "null is not allowed"}

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, cueError(err, path)
		}
		var list []*raw
		for i := 0; iter.Next(); i++ {
			r, err := fromCUE(iter.Value(), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			list = append(list, r)
		}
		return &raw{pos: pos, value: list}, nil

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, cueError(err, path)
		}
		obj := &object{fields: make(map[string]*raw)}
		for iter.Next() {
			label := iter.Label()
			r, err := fromCUE(iter.Value(), join(path, label))
			if err != nil {
				return nil, err
			}
			obj.keys = append(obj.keys, label)
			obj.fields[label] = r
		}
		return &raw{pos: pos, value: obj}, nil

	default:
		if err := v.Err(); err != nil {
			return nil, cueError(err, path)
		}
		return nil, &DecodeError{Pos: pos, Path: path, Message: fmt.Sprintf("value is not concrete (%v)", v.IncompleteKind())}
	}
}

// cueError keeps the first positioned error of a CUE error list.
func cueError(err error, path string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &DecodeError{Path: path, Err: err}
	}
	first := errs[0]
	pos := ""
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos = cuePos(positions[0])
	}
	return &DecodeError{Pos: pos, Path: path, Message: first.Error()}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
