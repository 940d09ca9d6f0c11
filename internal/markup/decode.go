package markup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/loom/internal/element"
)

const (
	keyComponents = "components"
	keyTree       = "tree"
)

// Extensions lists the file extensions LoadFile understands.
var Extensions = []string{".yaml", ".yml", ".cue"}

// IsTreeFile reports whether path has a tree file extension.
func IsTreeFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile reads and decodes a tree file, choosing the format by extension.
// Component templates in the file are added to reg.
func LoadFile(path string, reg *Registry) (*element.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data, path, reg)
	case ".cue":
		return DecodeCUE(data, path, reg)
	default:
		return nil, fmt.Errorf("read tree file %s: unsupported extension", path)
	}
}

// DecodeYAML decodes a YAML tree document. file is used in error positions.
func DecodeYAML(data []byte, file string, reg *Registry) (*element.Element, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Pos: file, Message: "invalid YAML", Err: err}
	}
	if doc.Kind == 0 {
		return nil, &DecodeError{Pos: file, Message: "empty document"}
	}
	r, err := fromYAML(&doc, file, "")
	if err != nil {
		return nil, err
	}
	return decodeDocument(r, reg)
}

// DecodeCUE decodes a CUE tree document. The value must be concrete.
func DecodeCUE(data []byte, file string, reg *Registry) (*element.Element, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(file))
	if err := v.Err(); err != nil {
		return nil, cueError(err, "")
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err, "")
	}
	r, err := fromCUE(v, "")
	if err != nil {
		return nil, err
	}
	return decodeDocument(r, reg)
}

// FromYAMLNode builds an element tree embedded in a larger YAML document,
// such as a scenario file.
func FromYAMLNode(n *yaml.Node, file, path string, reg *Registry) (*element.Element, error) {
	r, err := fromYAML(n, file, path)
	if err != nil {
		return nil, err
	}
	return (&builder{reg: reg}).element(r, path)
}

// DefineYAML registers a template component from a YAML element node.
func DefineYAML(name string, n *yaml.Node, file, path string, reg *Registry) error {
	r, err := fromYAML(n, file, path)
	if err != nil {
		return err
	}
	return defineTemplate(reg, name, r, path)
}

func decodeDocument(r *raw, reg *Registry) (*element.Element, error) {
	obj, ok := r.value.(*object)
	if !ok {
		return nil, errorAt(r, "", "tree file must be a map, got %s", r.kind())
	}
	if _, bare := obj.get(keyTag); bare {
		return (&builder{reg: reg}).element(r, "")
	}

	for _, k := range obj.keys {
		if k != keyComponents && k != keyTree {
			return nil, errorAt(obj.fields[k], k, "unknown document key")
		}
	}

	if cr, ok := obj.get(keyComponents); ok {
		comps, ok := cr.value.(*object)
		if !ok {
			return nil, errorAt(cr, keyComponents, "components must be a map, got %s", cr.kind())
		}
		for _, name := range comps.keys {
			if err := defineTemplate(reg, name, comps.fields[name], join(keyComponents, name)); err != nil {
				return nil, err
			}
		}
	}

	tree, ok := obj.get(keyTree)
	if !ok {
		return nil, errorAt(r, "", "tree is required")
	}
	return (&builder{reg: reg}).element(tree, keyTree)
}

func defineTemplate(reg *Registry, name string, body *raw, path string) error {
	if _, ok := body.value.(*object); !ok {
		return errorAt(body, path, "component body must be an element, got %s", body.kind())
	}
	return reg.define(name, body, path)
}
