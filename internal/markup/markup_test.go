package markup

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/element"
)

func TestDecodeYAML_BareElement(t *testing.T) {
	reg := NewRegistry()
	clicked := false
	_, err := reg.Handle("select", func(element.Event) { clicked = true })
	require.NoError(t, err)

	el, err := DecodeYAML([]byte(`
tag: div
props:
  id: main
  tabIndex: 3
  hidden: false
  onClick: "@select"
children:
  - hello
  - 42
  - tag: span
    children: [true]
`), "tree.yaml", reg)
	require.NoError(t, err)

	assert.Equal(t, element.HostTag("div"), el.Tag)
	assert.Equal(t, element.String("main"), el.Props["id"])
	assert.Equal(t, element.Int(3), el.Props["tabIndex"])
	assert.Equal(t, element.Bool(false), el.Props["hidden"])

	l, ok := el.Props["onClick"].(*element.Listener)
	require.True(t, ok)
	l.Invoke(element.Event{Type: "click"})
	assert.True(t, clicked)

	kids := el.Children()
	require.Len(t, kids, 3)
	assert.Equal(t, element.String("hello"), kids[0].Props[element.NodeValueKey])
	assert.Equal(t, element.String("42"), kids[1].Props[element.NodeValueKey])
	assert.Equal(t, element.HostTag("span"), kids[2].Tag)
	assert.Equal(t, element.String("true"), kids[2].Children()[0].Props[element.NodeValueKey])
}

func TestDecodeYAML_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"float prop", "tag: p\nprops: {width: 1.5}\n", "t.yaml:2:16: props.width: floats are not allowed: 1.5"},
		{"null prop", "tag: p\nprops: {title: null}\n", "props.title: null is not allowed"},
		{"float child", "tag: p\nchildren: [2.0]\n", "children[0]: floats are not allowed"},
		{"missing tag", "props: {}\n", "unknown document key"},
		{"bare missing tag", "tree: {props: {}}\n", "tree: tag is required"},
		{"unknown key", "tag: p\nkids: []\n", "kids: unknown element key"},
		{"list prop", "tag: p\nprops: {a: [1]}\n", "property values must be scalars, got list"},
		{"listener literal", "tag: p\nprops: {onClick: go}\n", "listeners are written as @name"},
		{"unknown listener", "tag: p\nprops: {onClick: \"@nope\"}\n", "unknown listener @nope"},
		{"children prop", "tag: p\nprops: {children: x}\n", "children belong under the children key"},
		{"children not list", "tag: p\nchildren: x\n", "children must be a list, got string"},
		{"not a map", "- a\n", "tree file must be a map, got list"},
		{"duplicate key", "tag: p\ntag: q\n", `key "tag"`},
		{"empty", "", "empty document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(tt.src), "t.yaml", NewRegistry())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeYAML_AutoListenersAreInterned(t *testing.T) {
	reg := NewRegistry(WithAutoListeners())
	src := []byte("tag: button\nprops: {onClick: \"@inc\"}\n")

	a, err := DecodeYAML(src, "a.yaml", reg)
	require.NoError(t, err)
	b, err := DecodeYAML(src, "b.yaml", reg)
	require.NoError(t, err)

	assert.Same(t, a.Props["onClick"], b.Props["onClick"])
	assert.Equal(t, "<fn inc>", element.Format(a.Props["onClick"]))
}

func TestDecodeYAML_Templates(t *testing.T) {
	reg := NewRegistry()
	el, err := DecodeYAML([]byte(`
components:
  Greeting:
    tag: h1
    props: { title: $name }
    children: ["Hello, ", $name, $children]
tree:
  tag: Greeting
  props: { name: World }
  children:
    - tag: em
      children: ["!"]
`), "doc.yaml", reg)
	require.NoError(t, err)

	greeting, ok := reg.Component("Greeting")
	require.True(t, ok)
	assert.Same(t, greeting, el.Tag)

	out, err := greeting.Render(el.Props)
	require.NoError(t, err)
	assert.Equal(t, element.HostTag("h1"), out.Tag)
	assert.Equal(t, element.String("World"), out.Props["title"])

	kids := out.Children()
	require.Len(t, kids, 3)
	assert.Equal(t, element.String("Hello, "), kids[0].Props[element.NodeValueKey])
	assert.Equal(t, element.String("World"), kids[1].Props[element.NodeValueKey])
	assert.Equal(t, element.HostTag("em"), kids[2].Tag)
}

func TestDecodeYAML_TemplateMissingProp(t *testing.T) {
	reg := NewRegistry()
	el, err := DecodeYAML([]byte(`
components:
  Label: { tag: span, children: [$text] }
tree: { tag: Label }
`), "doc.yaml", reg)
	require.NoError(t, err)

	_, err = el.Tag.(*element.Component).Render(el.Props)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template property $text is not set")
}

func TestDecodeYAML_RedefiningTemplateKeepsIdentity(t *testing.T) {
	reg := NewRegistry()
	first, err := DecodeYAML([]byte("components: {A: {tag: p}}\ntree: {tag: A}\n"), "1.yaml", reg)
	require.NoError(t, err)
	second, err := DecodeYAML([]byte("components: {A: {tag: span}}\ntree: {tag: A}\n"), "2.yaml", reg)
	require.NoError(t, err)

	assert.Same(t, first.Tag, second.Tag)
	out, err := second.Tag.(*element.Component).Render(second.Props)
	require.NoError(t, err)
	assert.Equal(t, element.HostTag("span"), out.Tag)
}

func TestDecodeYAML_EscapedDollar(t *testing.T) {
	el, err := DecodeYAML([]byte(`
components:
  Price: { tag: span, children: ["$$5"] }
tree: { tag: p, props: { label: "$$x" }, children: [{tag: Price}] }
`), "doc.yaml", NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, element.String("$x"), el.Props["label"])

	price := el.Children()[0]
	out, err := price.Tag.(*element.Component).Render(price.Props)
	require.NoError(t, err)
	assert.Equal(t, element.String("$5"), out.Children()[0].Props[element.NodeValueKey])
}

func TestDecodeCUE(t *testing.T) {
	reg := NewRegistry(WithAutoListeners())
	el, err := DecodeCUE([]byte(`
tree: {
	tag: "ul"
	props: {id: "list", count: 2, onClick: "@pick"}
	children: [for i in [1, 2] {tag: "li", children: [i]}]
}
`), "tree.cue", reg)
	require.NoError(t, err)

	assert.Equal(t, element.HostTag("ul"), el.Tag)
	assert.Equal(t, element.Int(2), el.Props["count"])
	assert.Equal(t, "<fn pick>", element.Format(el.Props["onClick"]))
	require.Len(t, el.Children(), 2)
	assert.Equal(t, element.String("2"), el.Children()[1].Children()[0].Props[element.NodeValueKey])
}

func TestDecodeCUE_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"float", `tag: "p", props: {w: 1.5}`, "props.w: floats are not allowed"},
		{"null", `tag: "p", props: {w: null}`, "props.w: null is not allowed"},
		{"incomplete", `tag: string`, "incomplete"},
		{"syntax", `tag: `, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCUE([]byte(tt.src), "tree.cue", NewRegistry())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "a.yaml")
	cuePath := filepath.Join(dir, "b.cue")
	txtPath := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(yamlPath, []byte("tag: p\n"), 0o644))
	require.NoError(t, os.WriteFile(cuePath, []byte(`tag: "p"`), 0o644))
	require.NoError(t, os.WriteFile(txtPath, []byte("tag: p\n"), 0o644))

	for _, path := range []string{yamlPath, cuePath} {
		el, err := LoadFile(path, NewRegistry())
		require.NoError(t, err, path)
		assert.Equal(t, element.HostTag("p"), el.Tag)
	}

	_, err := LoadFile(txtPath, NewRegistry())
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"), NewRegistry())
	assert.True(t, errors.Is(err, os.ErrNotExist))

	assert.True(t, IsTreeFile("x.YML"))
	assert.False(t, IsTreeFile("x.json"))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	render := func(element.Props) (*element.Element, error) { return nil, nil }

	require.NoError(t, reg.Register(element.NewComponent("B", render)))
	require.NoError(t, reg.Register(element.NewComponent("A", render)))
	assert.Error(t, reg.Register(element.NewComponent("A", render)))
	assert.Error(t, reg.Register(element.NewComponent("", render)))
	assert.Error(t, reg.Register(&element.Component{Name: "C"}))
	assert.Equal(t, []string{"A", "B"}, reg.Components())

	_, err := reg.Handle("x", nil)
	require.NoError(t, err)
	_, err = reg.Handle("x", nil)
	assert.Error(t, err)

	// A Go component cannot be shadowed by a template.
	_, err = DecodeYAML([]byte("components: {A: {tag: p}}\ntree: {tag: A}\n"), "d.yaml", reg)
	assert.ErrorContains(t, err, "already registered")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_EventHook(t *testing.T) {
	var got []string
	reg := NewRegistry(
		WithAutoListeners(),
		WithLogger(quietLogger()),
		WithEventHook(func(name string, ev element.Event) {
			got = append(got, name+":"+ev.Type)
		}),
	)

	l, err := reg.Listener("save")
	require.NoError(t, err)
	l.Invoke(element.Event{Type: "click"})
	l.Invoke(element.Event{Type: "submit"})

	assert.Equal(t, []string{"save:click", "save:submit"}, got)
}
