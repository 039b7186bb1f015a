package element

import (
	"fmt"
	"strings"
)

// Path locates a descriptor by the keys leading to it from the rendered root.
type Path []Key

// Child returns p extended by k. p is never modified.
func (p Path) Child(k Key) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = k
	return out
}

// String renders the path as /k1/k2; the empty path is "/".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, k := range p {
		b.WriteByte('/')
		b.WriteString(k.String())
	}
	return b.String()
}

// DuplicateKeyError reports two siblings sharing a key.
type DuplicateKeyError struct {
	Parent Path
	Key    Key
	First  int // index of the first sibling holding Key
	Second int // index of the duplicate
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s under %s (children %d and %d)", e.Key, e.Parent, e.First, e.Second)
}

// CheckKeys reports the first duplicate key among d's direct children.
func (d *Descriptor) CheckKeys(at Path) error {
	if len(d.Children) < 2 {
		return nil
	}
	seen := make(map[Key]int, len(d.Children))
	for i, c := range d.Children {
		if j, ok := seen[c.Key]; ok {
			return &DuplicateKeyError{Parent: at, Key: c.Key, First: j, Second: i}
		}
		seen[c.Key] = i
	}
	return nil
}

// Validate walks the whole tree and reports the first duplicate key.
// Paths are reported as the engine reports them: d sits at /#0 unless it
// carries an explicit key. The walk is iterative so deep trees do not grow
// the call stack.
func (d *Descriptor) Validate() error {
	type frame struct {
		d    *Descriptor
		path Path
	}
	stack := []frame{{d: d, path: Path{keyFor(d, 0)}}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := f.d.CheckKeys(f.path); err != nil {
			return err
		}
		for i := len(f.d.Children) - 1; i >= 0; i-- {
			c := f.d.Children[i]
			stack = append(stack, frame{d: c, path: f.path.Child(c.Key)})
		}
	}
	return nil
}

// Count returns the number of descriptors in the tree rooted at d.
func (d *Descriptor) Count() int {
	n := 0
	stack := []*Descriptor{d}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, cur.Children...)
	}
	return n
}
