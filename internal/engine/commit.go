package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/host"
)

// commit applies the effects of a reconciled tree to the visual tree.
//
// The walk uses the same pre-order as reconcile. Per fiber:
//  1. create the handle if missing and apply its props
//  2. remove the handles of deleted children
//  3. push the property patch if EffectUpdate is set
//  4. reinsert the handle if EffectMove is set
//  5. insert a newly created handle
//
// Moves and insertions anchor on the first later sibling that is already
// settled, so by the end of the pass every handle sits under its parent in
// sibling order. A provider failure aborts the pass and leaves the visual
// tree partially updated.
func commit(p host.Provider, root *Fiber) (*Report, error) {
	rep := &Report{}
	for f := root; f != nil; f = nextFiber(f, root) {
		if err := commitFiber(p, f, rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func commitFiber(p host.Provider, f *Fiber, rep *Report) error {
	// Built on the first recorded effect; most fibers of an update record none.
	var path element.Path
	pathOf := func() element.Path {
		if path == nil {
			path = f.Path()
		}
		return path
	}

	if f.handle == nil {
		h, err := createHandle(p, f)
		if err != nil {
			return commitError(f, "create", err)
		}
		f.handle = h
	}

	for _, del := range f.deletions {
		if err := p.RemoveChild(f.handle, del.handle); err != nil {
			return commitError(f, "remove child", err)
		}
		rep.record(OpDelete, pathOf().Child(del.key), del.kind)
	}
	f.deletions = nil

	if f.effect.Has(EffectUpdate) {
		if err := p.SetProperties(f.handle, f.patch); err != nil {
			return commitError(f, "set properties", err)
		}
		rep.record(OpUpdate, pathOf(), f.Kind)
		f.effect &^= EffectUpdate
		f.patch = nil
	}

	if f.effect.Has(EffectMove) {
		// Still flagged while the anchor is chosen so f never anchors on itself
		// and later siblings see it as unsettled.
		if err := p.InsertBefore(f.parent.handle, f.handle, f.anchor()); err != nil {
			return commitError(f, "move", err)
		}
		rep.record(OpMove, pathOf(), f.Kind)
		f.effect &^= EffectMove
	}

	if f.placement {
		if err := p.InsertBefore(f.parent.handle, f.handle, f.anchor()); err != nil {
			return commitError(f, "insert", err)
		}
		rep.record(OpAdd, pathOf(), f.Kind)
		f.placement = false
	}

	f.alternate = nil
	f.desc = nil
	return nil
}

// createHandle allocates f's visual node and applies its initial props.
// A text node takes its value at creation; any other props follow.
func createHandle(p host.Provider, f *Fiber) (host.Handle, error) {
	if f.IsText() {
		value := ""
		if f.desc != nil {
			value = f.desc.Value()
		}
		h, err := p.CreateTextNode(value)
		if err != nil {
			return nil, err
		}
		if rest := f.Props.Without(element.ValueProp); len(rest) > 0 {
			if err := p.SetProperties(h, rest); err != nil {
				return nil, err
			}
		}
		return h, nil
	}

	h, err := p.CreateNode(f.Kind)
	if err != nil {
		return nil, err
	}
	if len(f.Props) > 0 {
		if err := p.SetProperties(h, f.Props); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func commitError(f *Fiber, op string, err error) *RenderError {
	if errors.Is(err, host.ErrUnsupportedKind) {
		return &RenderError{
			Code:    ErrCodeUnsupportedKind,
			Message: fmt.Sprintf("host does not support kind %q", f.Kind),
			Path:    f.Path().String(),
			Err:     err,
		}
	}
	return &RenderError{
		Code:    ErrCodeProvider,
		Message: op + " failed",
		Path:    f.Path().String(),
		Err:     err,
	}
}
