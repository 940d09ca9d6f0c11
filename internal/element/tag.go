package element

// Tag identifies what an element instantiates.
// Only HostTag, *Component and the Text sentinel implement it.
type Tag interface {
	tag()
}

// HostTag names a host node type, e.g. "div".
type HostTag string

func (HostTag) tag() {}

// String returns the tag name.
func (t HostTag) String() string {
	return string(t)
}

type textTag struct{}

func (textTag) tag() {}

func (textTag) String() string {
	return "#text"
}

// Text is the sentinel tag of text elements.
var Text Tag = textTag{}

// Component is a function tag. Two component tags are the same type only if
// they are the same *Component.
type Component struct {
	// Name is used in logs and snapshots only.
	Name string

	// Render returns the single element this component expands to.
	// A nil element renders nothing.
	Render func(props Props) (*Element, error)
}

func (*Component) tag() {}

// String returns the component name.
func (c *Component) String() string {
	if c.Name == "" {
		return "component"
	}
	return c.Name
}

// NewComponent creates a component tag.
func NewComponent(name string, render func(props Props) (*Element, error)) *Component {
	return &Component{Name: name, Render: render}
}

// IsComponent reports whether t is a function tag.
func IsComponent(t Tag) bool {
	_, ok := t.(*Component)
	return ok
}

// TagName returns a printable name for any tag, including nil.
func TagName(t Tag) string {
	switch v := t.(type) {
	case nil:
		return "root"
	case HostTag:
		return string(v)
	case *Component:
		return v.String()
	case textTag:
		return v.String()
	default:
		return "unknown"
	}
}
