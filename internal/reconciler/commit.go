package reconciler

import (
	"strconv"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/host"
)

// commit applies the finished work-in-progress tree in one pass and promotes
// it to the committed tree.
//
// Order:
//  1. every queued deletion detaches its nearest host nodes
//  2. pre-order walk of the new tree: updates are applied on the way down;
//     a placed node is attached on the way back up, once its own subtree is
//     assembled, so a new subtree reaches the live tree with a single append
//  3. the arenas swap and the in-flight slots clear
//
// A host error abandons the commit: the committed tree is not advanced and
// the in-flight generation is dropped.
func (r *Reconciler) commit() error {
	r.busy = true
	info, err := r.applyCommit()
	r.busy = false

	if err != nil {
		r.logger.Error("commit abandoned", "generation", r.wip.gen, "error", err)
		err = &RenderError{Code: ErrCodeCommitFailed, Generation: r.wip.gen, Err: err}
		r.clearInFlight()
	} else {
		r.current = r.wip
		r.currentRoot = r.wipRoot
		r.clearInFlight()
		r.last = &info

		r.logger.Debug("commit complete",
			"generation", info.Generation,
			"fibers", info.Fibers,
			"deletions", len(info.Deletions),
		)
		if r.onCommit != nil {
			r.onCommit(info)
		}
	}

	if req := r.deferred; req != nil {
		r.deferred = nil
		r.schedule(req.el, req.container)
	}
	return err
}

func (r *Reconciler) clearInFlight() {
	r.wip = nil
	r.wipRoot = noFiber
	r.next = noFiber
	r.deletions = nil
	r.stalled = nil
}

func (r *Reconciler) applyCommit() (CommitInfo, error) {
	info := CommitInfo{Generation: r.wip.gen, Fibers: r.wip.size()}

	for _, id := range r.deletions {
		info.Deletions = append(info.Deletions, EffectRecord{
			Path:   r.current.path(id),
			Tag:    element.TagName(r.current.at(id).tag),
			Effect: EffectDeletion,
		})
		if err := r.commitDeletion(id, r.current.hostParent(id)); err != nil {
			return info, err
		}
	}

	root := r.wip.at(r.wipRoot)
	root.alternate = noFiber
	if err := r.commitWork(root.child, "", &info); err != nil {
		return info, err
	}
	return info, nil
}

// commitWork commits the sibling chain starting at id and everything below
// it.
func (r *Reconciler) commitWork(id fiberID, prefix string, info *CommitInfo) error {
	for i := 0; id != noFiber; i++ {
		path := strconv.Itoa(i)
		if prefix != "" {
			path = prefix + "/" + path
		}

		f := r.wip.at(id)
		info.Effects = append(info.Effects, EffectRecord{
			Path:   path,
			Tag:    element.TagName(f.tag),
			Effect: f.effect,
		})

		if f.effect == EffectUpdate && f.node != nil {
			if err := r.applyProps(f.node, r.current.at(f.alternate).props, f.props); err != nil {
				return err
			}
		}

		if err := r.commitWork(f.child, path, info); err != nil {
			return err
		}

		if f.effect == EffectPlacement && f.node != nil {
			if err := r.host.AppendChild(r.wip.hostParent(id), f.node); err != nil {
				return err
			}
		}

		f.effect = EffectNone
		f.alternate = noFiber
		id = f.sibling
	}
	return nil
}

// commitDeletion detaches the host nodes owned by a deleted committed fiber.
// A component fiber owns no node; its nearest host descendants are detached
// instead.
func (r *Reconciler) commitDeletion(id fiberID, parent host.Node) error {
	f := r.current.at(id)
	if f.node != nil {
		return r.host.RemoveChild(parent, f.node)
	}
	for c := f.child; c != noFiber; c = r.current.at(c).sibling {
		if err := r.commitDeletion(c, parent); err != nil {
			return err
		}
	}
	return nil
}

// path returns a fiber's child-index path below the root.
func (a *arena) path(id fiberID) string {
	var parts []string
	for cur := id; a.at(cur).parent != noFiber; cur = a.at(cur).parent {
		idx := 0
		for s := a.at(a.at(cur).parent).child; s != cur && s != noFiber; s = a.at(s).sibling {
			idx++
		}
		parts = append(parts, strconv.Itoa(idx))
	}
	out := ""
	for i := len(parts) - 1; i >= 0; i-- {
		if out != "" {
			out += "/"
		}
		out += parts[i]
	}
	return out
}
