package reconciler

import (
	"fmt"

	"github.com/roach88/loom/internal/element"
	"github.com/roach88/loom/internal/host"
)

// applyProps brings node's properties from prev to next in four passes:
// stale listeners removed, vanished attributes cleared, new or changed
// attributes set, new or changed listeners added. The children key is never
// applied. Keys are visited in sorted order.
func (r *Reconciler) applyProps(node host.Node, prev, next element.Props) error {
	for _, k := range prev.SortedKeys() {
		if !element.IsListenerKey(k) {
			continue
		}
		if nv, ok := next[k]; ok && element.Equal(prev[k], nv) {
			continue
		}
		l, err := listenerValue(k, prev[k])
		if err != nil {
			return err
		}
		if err := r.host.RemoveListener(node, element.EventName(k), l); err != nil {
			return err
		}
	}

	for _, k := range prev.SortedKeys() {
		if !element.IsAttributeKey(k) {
			continue
		}
		if _, ok := next[k]; ok {
			continue
		}
		if err := r.host.ClearProperty(node, k); err != nil {
			return err
		}
	}

	for _, k := range next.SortedKeys() {
		if !element.IsAttributeKey(k) {
			continue
		}
		if pv, ok := prev[k]; ok && element.Equal(pv, next[k]) {
			continue
		}
		if err := r.host.SetProperty(node, k, next[k]); err != nil {
			return err
		}
	}

	for _, k := range next.SortedKeys() {
		if !element.IsListenerKey(k) {
			continue
		}
		if pv, ok := prev[k]; ok && element.Equal(pv, next[k]) {
			continue
		}
		l, err := listenerValue(k, next[k])
		if err != nil {
			return err
		}
		if err := r.host.AddListener(node, element.EventName(k), l); err != nil {
			return err
		}
	}
	return nil
}

func listenerValue(key string, v element.Value) (*element.Listener, error) {
	l, ok := v.(*element.Listener)
	if !ok || l == nil {
		return nil, fmt.Errorf("property %q: listener expected, got %T", key, v)
	}
	return l, nil
}
