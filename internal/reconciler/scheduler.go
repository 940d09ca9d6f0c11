package reconciler

import (
	"fmt"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/idle"
)

// workLoop performs units of work while the deadline allows, commits when
// the cursor drains, and re-arms while work remains.
//
// The deadline is consulted only between units, never inside one.
func (r *Reconciler) workLoop(d idle.Deadline) error {
	for r.next != noFiber && d.TimeRemaining() >= r.threshold {
		if err := r.step(); err != nil {
			return err
		}
	}

	if r.next == noFiber && r.wip != nil {
		return r.commit()
	}
	if r.next != noFiber {
		r.logger.Debug("yielding", "generation", r.wip.gen, "fibers", r.wip.size())
		r.arm()
	}
	return nil
}

// step runs one unit of work and applies a Render deferred by it. A failed
// unit still reports its error when a deferred Render supersedes it.
func (r *Reconciler) step() error {
	r.busy = true
	next, err := r.performUnitOfWork(r.next)
	r.busy = false

	if err != nil {
		r.stalled = err
		r.logger.Error("unit of work failed", "generation", r.wip.gen, "error", err)
	} else {
		r.next = next
	}

	if req := r.deferred; req != nil {
		r.deferred = nil
		r.schedule(req.el, req.container)
	}
	return err
}

// performUnitOfWork expands one fiber into its child fibers and returns the
// next fiber to work on. On error the cursor is left on id.
func (r *Reconciler) performUnitOfWork(id fiberID) (fiberID, error) {
	f := r.wip.at(id)

	if c, ok := f.tag.(*element.Component); ok {
		el, err := renderComponent(c, f.props)
		if err != nil {
			return id, &RenderError{
				Code:       ErrCodeComponentFailed,
				Generation: r.wip.gen,
				Fiber:      c.String(),
				Err:        err,
			}
		}
		children := element.Children{}
		if el != nil {
			children = element.Children{el}
		}
		r.reconcileChildren(id, children)
		return r.nextUnit(id), nil
	}

	if f.node == nil {
		node, err := r.host.CreateNode(f.tag)
		if err == nil {
			err = r.applyProps(node, nil, f.props)
		}
		if err != nil {
			return id, &RenderError{
				Code:       ErrCodeHostFailed,
				Generation: r.wip.gen,
				Fiber:      element.TagName(f.tag),
				Err:        err,
			}
		}
		r.wip.at(id).node = node
	}

	r.reconcileChildren(id, r.wip.at(id).props.Children())
	return r.nextUnit(id), nil
}

// renderComponent calls a component, turning a panic into an error.
func renderComponent(c *element.Component, props element.Props) (el *element.Element, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return c.Render(props)
}

// nextUnit returns the fiber after id in depth-first order: its first child,
// else the first sibling found walking up from id. noFiber means the tree is
// built.
func (r *Reconciler) nextUnit(id fiberID) fiberID {
	if child := r.wip.at(id).child; child != noFiber {
		return child
	}
	for cur := id; cur != noFiber; cur = r.wip.at(cur).parent {
		if sibling := r.wip.at(cur).sibling; sibling != noFiber {
			return sibling
		}
	}
	return noFiber
}
