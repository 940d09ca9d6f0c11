package reconciler

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/host"
	"github.com/roach88/loom/internal/idle"
	"github.com/roach88/loom/internal/trace"
)

// manualScheduler queues callbacks until the test runs them.
type manualScheduler struct {
	pending []idle.Callback
}

func (s *manualScheduler) RequestCallback(cb idle.Callback) {
	s.pending = append(s.pending, cb)
}

// runOne invokes the oldest pending callback with d.
func (s *manualScheduler) runOne(t *testing.T, d idle.Deadline) error {
	t.Helper()
	require.NotEmpty(t, s.pending, "no pending callback")
	cb := s.pending[0]
	s.pending = s.pending[1:]
	return cb(d)
}

type fixture struct {
	mem   *host.Memory
	root  *host.MemNode
	sched *manualScheduler
	r     *Reconciler
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	mem := host.NewMemory()
	f := &fixture{
		mem:   mem,
		root:  mem.NewContainer("root"),
		sched: &manualScheduler{},
	}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	f.r = New(mem, f.sched, opts...)
	return f
}

// render renders el synchronously and returns the host ops it produced.
func (f *fixture) render(t *testing.T, el *element.Element) string {
	t.Helper()
	f.r.Render(el, f.root)
	require.NoError(t, f.r.Flush())
	return trace.Format(f.mem.TakeOps())
}

func (f *fixture) dump() string {
	return host.Dump(f.root)
}

var (
	div = element.HostTag("div")
	h1  = element.HostTag("h1")
	h2  = element.HostTag("h2")
	p   = element.HostTag("p")
	ul  = element.HostTag("ul")
	li  = element.HostTag("li")
)

// page is div#id > [h1 > heading, second].
func page(id, heading string, second element.Tag) *element.Element {
	return element.MustCreate(div, element.Props{"id": element.String(id)},
		element.MustCreate(h1, nil, heading),
		element.MustCreate(second, nil),
	)
}

// items is a ul with one li per title.
func items(titles ...string) *element.Element {
	kids := make([]any, len(titles))
	for i, title := range titles {
		kids[i] = element.MustCreate(li, element.Props{"title": element.String(title)})
	}
	return element.MustCreate(ul, nil, kids...)
}

func TestRender_Mount(t *testing.T) {
	f := newFixture(t)

	ops := f.render(t, page("foo", "hi", h2))

	// New subtrees are built detached and attached bottom-up.
	assert.Equal(t, "create div#2\n"+
		"set div#2 id=foo\n"+
		"create h1#3\n"+
		"create #text#4\n"+
		"set #text#4 nodeValue=hi\n"+
		"create h2#5\n"+
		"append h1#3 #text#4\n"+
		"append div#2 h1#3\n"+
		"append div#2 h2#5\n"+
		"append root#1 div#2\n", ops)

	assert.Equal(t, "root#1\n"+
		"  div#2 id=foo\n"+
		"    h1#3\n"+
		"      #text#4 \"hi\"\n"+
		"    h2#5\n", f.dump())
	assert.Equal(t, int64(1), f.r.Generation())
	assert.False(t, f.r.Pending())
}

func TestRender_SameTreeIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.render(t, page("foo", "hi", h2))

	ops := f.render(t, page("foo", "hi", h2))

	assert.Empty(t, ops)
	assert.Equal(t, int64(2), f.r.Generation())
}

func TestRender_PositionalUpdate(t *testing.T) {
	f := newFixture(t)
	f.render(t, page("foo", "hi", h2))

	ops := f.render(t, page("bar", "yo", h2))

	assert.Equal(t, "set div#2 id=bar\nset #text#4 nodeValue=yo\n", ops)
}

func TestRender_TypeChangeReplacesNode(t *testing.T) {
	f := newFixture(t)
	f.render(t, page("foo", "hi", h2))

	ops := f.render(t, page("foo", "hi", p))

	assert.Equal(t, "create p#6\nremove div#2 h2#5\nappend div#2 p#6\n", ops)
	assert.Equal(t, "root#1\n"+
		"  div#2 id=foo\n"+
		"    h1#3\n"+
		"      #text#4 \"hi\"\n"+
		"    p#6\n", f.dump())
}

func TestRender_ShrinkAndGrow(t *testing.T) {
	f := newFixture(t)

	ops := f.render(t, items("a", "b"))
	assert.Equal(t, "create ul#2\n"+
		"create li#3\n"+
		"set li#3 title=a\n"+
		"create li#4\n"+
		"set li#4 title=b\n"+
		"append ul#2 li#3\n"+
		"append ul#2 li#4\n"+
		"append root#1 ul#2\n", ops)

	ops = f.render(t, items("a"))
	assert.Equal(t, "remove ul#2 li#4\n", ops)

	ops = f.render(t, items("a", "b", "c"))
	assert.Equal(t, "create li#5\n"+
		"set li#5 title=b\n"+
		"create li#6\n"+
		"set li#6 title=c\n"+
		"append ul#2 li#5\n"+
		"append ul#2 li#6\n", ops)
}

func TestRender_InsertAtFrontRebindsByPosition(t *testing.T) {
	f := newFixture(t)
	f.render(t, items("b", "c"))

	ops := f.render(t, items("a", "b", "c"))

	// No keys: every existing li takes the element at its index and the
	// last element gets a new node.
	assert.Equal(t, "create li#5\n"+
		"set li#5 title=c\n"+
		"set li#3 title=a\n"+
		"set li#4 title=b\n"+
		"append ul#2 li#5\n", ops)
}

func TestRender_Listeners(t *testing.T) {
	f := newFixture(t)
	button := element.HostTag("button")

	clicks := 0
	inc := element.On("inc", func(element.Event) { clicks++ })
	dec := element.On("dec", func(element.Event) { clicks-- })

	ops := f.render(t, element.MustCreate(button, element.Props{
		"onClick": inc,
		"title":   element.String("x"),
	}))
	assert.Equal(t, "create button#2\n"+
		"set button#2 title=x\n"+
		"listen button#2 click <fn inc>\n"+
		"append root#1 button#2\n", ops)

	node := host.Find(f.root, "button")
	require.NotNil(t, node)
	assert.True(t, f.mem.Dispatch(node, "click", nil))
	assert.Equal(t, 1, clicks)

	// Same listener value: nothing to do.
	ops = f.render(t, element.MustCreate(button, element.Props{
		"onClick": inc,
		"title":   element.String("x"),
	}))
	assert.Empty(t, ops)

	ops = f.render(t, element.MustCreate(button, element.Props{"onClick": dec}))
	assert.Equal(t, "unlisten button#2 click <fn inc>\n"+
		"clear button#2 title\n"+
		"listen button#2 click <fn dec>\n", ops)

	assert.True(t, f.mem.Dispatch(node, "click", nil))
	assert.Equal(t, 0, clicks)

	ops = f.render(t, element.MustCreate(button, nil))
	assert.Equal(t, "unlisten button#2 click <fn dec>\n", ops)
	assert.False(t, f.mem.Dispatch(node, "click", nil))
}

func TestRender_Component(t *testing.T) {
	f := newFixture(t)
	counter := element.NewComponent("Counter", func(props element.Props) (*element.Element, error) {
		return element.Create(element.HostTag("span"), nil, element.Format(props["count"]))
	})

	ops := f.render(t, element.MustCreate(counter, element.Props{"count": element.Int(1)}))
	assert.Equal(t, "create span#2\n"+
		"create #text#3\n"+
		"set #text#3 nodeValue=1\n"+
		"append span#2 #text#3\n"+
		"append root#1 span#2\n", ops)

	ops = f.render(t, element.MustCreate(counter, element.Props{"count": element.Int(2)}))
	assert.Equal(t, "set #text#3 nodeValue=2\n", ops)

	want := &Snapshot{
		Tag:   "root",
		Props: map[string]string{},
		Children: []*Snapshot{{
			Tag:       "Counter",
			Component: true,
			Props:     map[string]string{"count": "2"},
			Children: []*Snapshot{{
				Tag:   "span",
				Props: map[string]string{},
				Children: []*Snapshot{{
					Tag:   "#text",
					Props: map[string]string{"nodeValue": "2"},
				}},
			}},
		}},
	}
	if diff := cmp.Diff(want, f.r.Current()); diff != "" {
		t.Errorf("committed tree mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_ComponentDeletionRemovesHostDescendants(t *testing.T) {
	f := newFixture(t)
	counter := element.NewComponent("Counter", func(element.Props) (*element.Element, error) {
		return element.Create(element.HostTag("span"), nil, "1")
	})
	empty := element.NewComponent("Empty", func(element.Props) (*element.Element, error) {
		return nil, nil
	})

	f.render(t, element.MustCreate(counter, nil))
	ops := f.render(t, element.MustCreate(empty, nil))

	assert.Equal(t, "remove root#1 span#2\n", ops)
	assert.Equal(t, "root#1\n", f.dump())
}

func TestRender_NilElementClearsContainer(t *testing.T) {
	f := newFixture(t)
	f.render(t, page("foo", "hi", h2))

	ops := f.render(t, nil)

	assert.Equal(t, "remove root#1 div#2\n", ops)
	assert.Equal(t, "root#1\n", f.dump())
}

func TestRender_NewContainerMountsFromScratch(t *testing.T) {
	f := newFixture(t)
	f.render(t, items("a"))

	other := f.mem.NewContainer("other")
	f.r.Render(items("a"), other)
	require.NoError(t, f.r.Flush())

	ops := trace.Format(f.mem.TakeOps())
	assert.Equal(t, "create ul#5\n"+
		"create li#6\n"+
		"set li#6 title=a\n"+
		"append ul#5 li#6\n"+
		"append other#4 ul#5\n", ops)
}

func TestRender_DeferredFromComponent(t *testing.T) {
	f := newFixture(t)

	second := element.MustCreate(p, nil, "second")
	fired := false
	trigger := element.NewComponent("Trigger", func(element.Props) (*element.Element, error) {
		if !fired {
			fired = true
			f.r.Render(second, f.root)
		}
		return element.Create(p, nil, "first")
	})

	ops := f.render(t, element.MustCreate(trigger, nil))

	assert.Equal(t, "create p#2\n"+
		"create #text#3\n"+
		"set #text#3 nodeValue=second\n"+
		"append p#2 #text#3\n"+
		"append root#1 p#2\n", ops)
	assert.Equal(t, int64(2), f.r.Generation())
}

func TestRender_DeferredFromFailingComponent(t *testing.T) {
	f := newFixture(t)

	replacement := element.MustCreate(div, nil)
	bad := element.NewComponent("Bad", func(element.Props) (*element.Element, error) {
		f.r.Render(replacement, f.root)
		return nil, errors.New("boom")
	})

	f.r.Render(element.MustCreate(bad, nil), f.root)
	err := f.r.Flush()
	require.Error(t, err)
	assert.True(t, IsComponentError(err))
	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, int64(1), re.Generation)
	assert.Equal(t, "Bad", re.Fiber)

	// The deferred Render still supersedes the failed generation.
	assert.False(t, f.r.Stalled())
	assert.True(t, f.r.Pending())
	require.NoError(t, f.r.Flush())
	assert.Equal(t, int64(2), f.r.Generation())
	assert.Equal(t, "root#1\n  div#2\n", f.dump())
}

func TestRender_DeferredFromFailingComponentViaCallback(t *testing.T) {
	f := newFixture(t)

	bad := element.NewComponent("Bad", func(element.Props) (*element.Element, error) {
		f.r.Render(items("a"), f.root)
		return nil, errors.New("boom")
	})

	f.r.Render(element.MustCreate(bad, nil), f.root)
	err := f.sched.runOne(t, idle.Unlimited)
	assert.True(t, IsComponentError(err))

	require.Len(t, f.sched.pending, 1, "deferred render re-armed")
	require.NoError(t, f.sched.runOne(t, idle.Unlimited))
	assert.Equal(t, int64(2), f.r.Generation())
}

func TestNew_Defaults(t *testing.T) {
	r := New(host.NewMemory(), &manualScheduler{})

	assert.Equal(t, DefaultYieldThreshold, r.threshold)
	assert.NotNil(t, r.logger)
	assert.NotNil(t, r.clock)
	assert.Nil(t, r.Current())
	assert.Nil(t, r.LastCommit())
	assert.Equal(t, int64(0), r.Generation())
}
