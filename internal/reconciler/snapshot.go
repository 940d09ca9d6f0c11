package reconciler

import "github.com/roach88/loom/internal/element"

// Snapshot is a detached copy of one committed fiber and its subtree.
// Props hold formatted values and never include the children key.
type Snapshot struct {
	Tag       string
	Component bool
	Props     map[string]string
	Children  []*Snapshot
}

// Current returns the committed tree starting at the root fiber, or nil
// before the first commit.
func (r *Reconciler) Current() *Snapshot {
	if r.current == nil || r.currentRoot == noFiber {
		return nil
	}
	return r.current.snapshot(r.currentRoot)
}

func (a *arena) snapshot(id fiberID) *Snapshot {
	f := a.at(id)
	s := &Snapshot{
		Tag:       element.TagName(f.tag),
		Component: f.isComponent(),
		Props:     make(map[string]string, len(f.props)),
	}
	for k, v := range f.props {
		if k == element.ChildrenKey {
			continue
		}
		s.Props[k] = element.Format(v)
	}
	for c := f.child; c != noFiber; c = a.at(c).sibling {
		s.Children = append(s.Children, a.snapshot(c))
	}
	return s
}
