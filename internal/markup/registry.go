package markup

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/loom/internal/element"
)

// Registry resolves component names and "@name" listener references.
//
// Listener values are interned by name: every lookup of a name returns the
// same *element.Listener, which keeps listener diffs quiet across renders.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	components map[string]*element.Component
	listeners  map[string]*element.Listener
	templates  map[string]*template
	auto       bool
	onEvent    func(listener string, ev element.Event)
	logger     *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithAutoListeners makes unknown listener names resolve to a listener that
// only logs the events it receives, instead of failing.
func WithAutoListeners() RegistryOption {
	return func(r *Registry) {
		r.auto = true
	}
}

// WithEventHook makes auto listeners report every event they receive to fn.
func WithEventHook(fn func(listener string, ev element.Event)) RegistryOption {
	return func(r *Registry) {
		r.onEvent = fn
	}
}

// WithLogger sets the logger auto listeners write to.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		components: make(map[string]*element.Component),
		listeners:  make(map[string]*element.Listener),
		templates:  make(map[string]*template),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a component under its name.
func (r *Registry) Register(c *element.Component) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("register component: name is required")
	}
	if c.Render == nil {
		return fmt.Errorf("register component %s: render function is required", c.Name)
	}
	if _, dup := r.components[c.Name]; dup {
		return fmt.Errorf("register component %s: already registered", c.Name)
	}
	r.components[c.Name] = c
	return nil
}

// Handle registers fn as the listener named name.
func (r *Registry) Handle(name string, fn func(element.Event)) (*element.Listener, error) {
	if name == "" {
		return nil, fmt.Errorf("register listener: name is required")
	}
	if _, dup := r.listeners[name]; dup {
		return nil, fmt.Errorf("register listener %s: already registered", name)
	}
	l := element.On(name, fn)
	r.listeners[name] = l
	return l, nil
}

// Component returns the component registered under name.
func (r *Registry) Component(name string) (*element.Component, bool) {
	c, ok := r.components[name]
	return c, ok
}

// Listener returns the listener registered under name. With auto listeners
// enabled an unknown name is registered on first use.
func (r *Registry) Listener(name string) (*element.Listener, error) {
	if l, ok := r.listeners[name]; ok {
		return l, nil
	}
	if !r.auto {
		return nil, fmt.Errorf("unknown listener @%s", name)
	}
	logger, hook := r.logger, r.onEvent
	l := element.On(name, func(ev element.Event) {
		logger.Debug("event", "listener", name, "type", ev.Type)
		if hook != nil {
			hook(name, ev)
		}
	})
	r.listeners[name] = l
	return l, nil
}

// Components returns the registered component names in sorted order.
func (r *Registry) Components() []string {
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// template is a component defined in a tree file. Redefining a template
// swaps its body but keeps the component value, so trees decoded before and
// after the redefinition still diff as the same component type.
type template struct {
	body *raw
	path string
}

// define registers or redefines a template component whose body is built
// with the component's props in scope.
func (r *Registry) define(name string, body *raw, path string) error {
	if t, ok := r.templates[name]; ok {
		t.body, t.path = body, path
		return nil
	}
	if _, dup := r.components[name]; dup {
		return errorAt(body, path, "component %s is already registered", name)
	}
	t := &template{body: body, path: path}
	r.templates[name] = t
	r.components[name] = element.NewComponent(name, func(props element.Props) (*element.Element, error) {
		b := &builder{reg: r, env: props}
		return b.element(t.body, t.path)
	})
	return nil
}
