package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/ir"
)

// reconcile builds the work-in-progress tree under root.
//
// root must carry its descriptor and, for an incremental render, its
// alternate. Nodes are processed in pre-order through nextFiber, so the
// whole tree is one flat work list and deep trees never grow the call stack.
//
// No visual mutation happens here. A failure leaves the committed tree and
// the visual tree exactly as they were.
func reconcile(root *Fiber) error {
	for f := root; f != nil; f = nextFiber(f, root) {
		if err := reconcileChildren(f); err != nil {
			return err
		}
	}
	return nil
}

// reconcileChildren diffs f's descriptor children against the children of
// f's alternate and links the resulting child fibers under f.
func reconcileChildren(f *Fiber) error {
	d := f.desc
	if err := d.CheckKeys(nil); err != nil {
		path := f.Path()
		var dup *element.DuplicateKeyError
		if errors.As(err, &dup) {
			dup.Parent = path
		}
		return NewDuplicateKeyError(path.String(), err)
	}

	var oldByKey map[element.Key]*Fiber
	if f.alternate != nil {
		oldByKey = f.alternate.byKey
	}

	f.child = nil
	f.byKey = nil
	f.deletions = nil

	// Deletion pass, in old sibling order so removals are deterministic.
	if f.alternate != nil && f.alternate.child != nil {
		live := make(map[element.Key]struct{}, len(d.Children))
		for _, c := range d.Children {
			live[c.Key] = struct{}{}
		}
		for old := f.alternate.child; old != nil; old = old.sibling {
			if _, ok := live[old.Key]; !ok {
				f.scheduleDeletion(old)
			}
		}
	}

	if len(d.Children) == 0 {
		return nil
	}

	f.byKey = make(map[element.Key]*Fiber, len(d.Children))
	lastPlaced := -1
	var prev *Fiber
	for i, cd := range d.Children {
		nf := &Fiber{
			Kind:   cd.Kind,
			Key:    cd.Key,
			Props:  cd.Props,
			parent: f,
			prev:   prev,
			order:  i,
			desc:   cd,
		}

		old, ok := oldByKey[cd.Key]
		switch {
		case ok && old.Kind == cd.Kind:
			nf.handle = old.handle
			nf.alternate = old
			if !ir.EqualObjects(old.Props, cd.Props) {
				nf.effect |= EffectUpdate
				nf.patch = ir.Diff(old.Props, cd.Props)
			}
			if old.order >= lastPlaced {
				lastPlaced = old.order
			} else {
				nf.effect |= EffectMove
			}
		case ok:
			// Same key, different kind: replace rather than update.
			f.scheduleDeletion(old)
			nf.placement = true
		default:
			nf.placement = true
		}

		if prev == nil {
			f.child = nf
		} else {
			prev.sibling = nf
		}
		f.byKey[cd.Key] = nf
		prev = nf
	}

	slog.Debug("reconciled",
		"path", f,
		"children", len(d.Children),
		"deletions", len(f.deletions),
	)
	return nil
}

func (f *Fiber) scheduleDeletion(old *Fiber) {
	if old.handle == nil {
		return
	}
	f.deletions = append(f.deletions, deletion{handle: old.handle, key: old.Key, kind: old.Kind})
}
