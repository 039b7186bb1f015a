package engine

import (
	"log/slog"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/ir"
)

// Effect is the bitmask of commit work pending on a matched fiber.
// Newly created fibers carry placement instead, which subsumes both bits.
type Effect uint8

const (
	EffectNone   Effect = 0
	EffectUpdate Effect = 1 << 0
	EffectMove   Effect = 1 << 1
)

// Has reports whether all bits of x are set in e.
func (e Effect) Has(x Effect) bool {
	return e&x == x
}

// String renders the set bits, e.g. "update|move".
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectUpdate:
		return "update"
	case EffectMove:
		return "move"
	case EffectUpdate | EffectMove:
		return "update|move"
	default:
		return "invalid"
	}
}

// Fiber is one node of the render tree.
//
// A fiber mirrors one descriptor position. Every render builds a fresh
// work-in-progress tree; a fiber matched by key and kind against the previous
// tree inherits its visual handle through the alternate link, which is cleared
// once the commit pass has visited it. After a successful commit exactly one
// live fiber owns each handle.
//
// Fibers are owned by a Root. The exported accessors are for inspection only.
type Fiber struct {
	Kind  string
	Key   element.Key
	Props ir.IRObject

	handle    host.Handle
	effect    Effect
	placement bool
	patch     ir.IRObject // props to push on update; removed keys map to IRNull

	alternate *Fiber // same position in the last committed tree; one generation only

	parent  *Fiber
	child   *Fiber
	sibling *Fiber
	prev    *Fiber

	byKey map[element.Key]*Fiber
	order int

	deletions []deletion
	desc      *element.Descriptor // descriptor for the pass in flight
}

// deletion is a child handle scheduled for removal from its parent's handle.
type deletion struct {
	handle host.Handle
	key    element.Key
	kind   string
}

// Handle returns the visual handle owned by f, nil before its first commit.
func (f *Fiber) Handle() host.Handle { return f.handle }

// Effect returns the pending effect bits. Always EffectNone after commit.
func (f *Fiber) Effect() Effect { return f.effect }

// Placement reports whether f is pending insertion as a new node.
func (f *Fiber) Placement() bool { return f.placement }

// Alternate returns the previous version of f during a pass, nil otherwise.
func (f *Fiber) Alternate() *Fiber { return f.alternate }

// Parent returns the parent fiber, nil for the root.
func (f *Fiber) Parent() *Fiber { return f.parent }

// Child returns the first child.
func (f *Fiber) Child() *Fiber { return f.child }

// Sibling returns the next sibling.
func (f *Fiber) Sibling() *Fiber { return f.sibling }

// Prev returns the previous sibling.
func (f *Fiber) Prev() *Fiber { return f.prev }

// Order returns f's index among its siblings.
func (f *Fiber) Order() int { return f.order }

// IsText reports whether f renders a text node.
func (f *Fiber) IsText() bool { return f.Kind == element.TextKind }

// Children returns the child fibers in sibling order.
func (f *Fiber) Children() []*Fiber {
	var out []*Fiber
	for c := f.child; c != nil; c = c.sibling {
		out = append(out, c)
	}
	return out
}

// ChildByKey looks up a direct child by key.
func (f *Fiber) ChildByKey(k element.Key) (*Fiber, bool) {
	c, ok := f.byKey[k]
	return c, ok
}

// Path returns the key path from the root fiber to f.
// The root's own key is not part of the path; its children sit at /k.
func (f *Fiber) Path() element.Path {
	var rev []element.Key
	for cur := f; cur != nil && cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.Key)
	}
	p := make(element.Path, len(rev))
	for i, k := range rev {
		p[len(rev)-1-i] = k
	}
	return p
}

// LogValue logs f as its path.
func (f *Fiber) LogValue() slog.Value {
	return slog.StringValue(f.Path().String())
}

// Find resolves a path produced by Path. The empty path resolves to f.
func (f *Fiber) Find(p element.Path) (*Fiber, bool) {
	cur := f
	for _, k := range p {
		next, ok := cur.byKey[k]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Count returns the number of fibers in the subtree rooted at f.
func (f *Fiber) Count() int {
	n := 0
	for cur := f; cur != nil; cur = nextFiber(cur, f) {
		n++
	}
	return n
}

// nextFiber returns the pre-order successor of f within the subtree rooted at
// root: the first child if any, else the nearest next sibling walking upward.
func nextFiber(f, root *Fiber) *Fiber {
	if f.child != nil {
		return f.child
	}
	for cur := f; cur != nil && cur != root; cur = cur.parent {
		if cur.sibling != nil {
			return cur.sibling
		}
	}
	return nil
}

// settled reports whether f already sits at its final position in the
// visual tree, so it can serve as an insertion anchor.
func (f *Fiber) settled() bool {
	return f.handle != nil && !f.placement && !f.effect.Has(EffectMove)
}

// anchor returns the handle to insert f before: the first settled sibling
// after f, or nil to append.
func (f *Fiber) anchor() host.Handle {
	for s := f.sibling; s != nil; s = s.sibling {
		if s.settled() {
			return s.handle
		}
	}
	return nil
}
