package reconciler

import (
	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/host"
)

// fiberID indexes a fiber in an arena. Slot 0 is reserved so the zero value
// means "no fiber".
type fiberID int32

const noFiber fiberID = 0

// Effect is the commit-time action assigned to a fiber during the render
// phase.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectPlacement
	EffectUpdate
	EffectDeletion
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectPlacement:
		return "placement"
	case EffectUpdate:
		return "update"
	case EffectDeletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// fiber is one element instance at one tree position.
//
// parent, child and sibling index the fiber's own arena. alternate indexes
// the committed arena and is cleared once the fiber is committed.
type fiber struct {
	tag   element.Tag
	props element.Props
	node  host.Node

	parent    fiberID
	child     fiberID
	sibling   fiberID
	alternate fiberID

	effect Effect
}

func (f *fiber) isComponent() bool {
	return element.IsComponent(f.tag)
}

// arena stores the fibers of one generation.
//
// Pointers returned by at are invalidated by alloc; callers re-fetch after
// allocating.
type arena struct {
	gen    int64
	fibers []fiber
}

func newArena(gen int64) *arena {
	return &arena{gen: gen, fibers: make([]fiber, 1, 64)}
}

func (a *arena) alloc(f fiber) fiberID {
	a.fibers = append(a.fibers, f)
	return fiberID(len(a.fibers) - 1)
}

func (a *arena) at(id fiberID) *fiber {
	return &a.fibers[id]
}

// size is the number of live fibers, excluding the reserved slot.
func (a *arena) size() int {
	return len(a.fibers) - 1
}

// hostParent returns the host node of the nearest ancestor that owns one,
// skipping component fibers. The root always owns the container.
func (a *arena) hostParent(id fiberID) host.Node {
	for p := a.at(id).parent; p != noFiber; p = a.at(p).parent {
		if n := a.at(p).node; n != nil {
			return n
		}
	}
	return nil
}
