package reconciler

import "github.com/roach88/loom/internal/element"

// reconcileChildren rebuilds parent's child chain from elements, pairing
// them by position with the children of parent's alternate.
//
// At each index:
//   - same tag: an update fiber that keeps the old host node
//   - different tag or no old fiber: a placement fiber with no node
//   - old fiber with a different tag or no element: the old fiber is queued
//     for deletion and not linked into the new chain
//
// Matching is purely positional; there are no keys. Inserting or removing a
// child anywhere but the end rebinds every later host node to a different
// element of the same tag, or replaces it when the tags differ.
//
// The committed arena is only read. Deletion marks live in r.deletions.
func (r *Reconciler) reconcileChildren(parent fiberID, elements element.Children) {
	old := noFiber
	if alt := r.wip.at(parent).alternate; alt != noFiber {
		old = r.current.at(alt).child
	}

	prev := noFiber
	for i := 0; i < len(elements) || old != noFiber; i++ {
		var el *element.Element
		if i < len(elements) {
			el = elements[i]
		}

		var oldFiber *fiber
		if old != noFiber {
			oldFiber = r.current.at(old)
		}

		sameType := el != nil && oldFiber != nil && el.Tag == oldFiber.tag

		created := noFiber
		switch {
		case sameType:
			created = r.wip.alloc(fiber{
				tag:       oldFiber.tag,
				props:     el.Props,
				node:      oldFiber.node,
				parent:    parent,
				alternate: old,
				effect:    EffectUpdate,
			})
		case el != nil:
			created = r.wip.alloc(fiber{
				tag:    el.Tag,
				props:  el.Props,
				parent: parent,
				effect: EffectPlacement,
			})
		}

		if oldFiber != nil && !sameType {
			r.deletions = append(r.deletions, old)
		}

		if oldFiber != nil {
			old = oldFiber.sibling
		}

		if created != noFiber {
			if prev == noFiber {
				r.wip.at(parent).child = created
			} else {
				r.wip.at(prev).sibling = created
			}
			prev = created
		}
	}
}
