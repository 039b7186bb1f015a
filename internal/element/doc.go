// Package element provides the immutable descriptor tree that callers hand to
// the engine on every render.
//
// A Descriptor is a kind (a visual tag, or TextKind), a property object and an
// ordered list of keyed children. Build normalises string children into text
// descriptors and assigns sibling keys: the "key" property when present,
// otherwise the child's position.
//
// Example:
//
//	list := element.Build("ul", nil,
//	    element.Keyed(1, "li", nil, element.Text("Item 1")),
//	    element.Keyed(2, "li", nil, element.Text("Item 2")),
//	)
//
// Duplicate sibling keys are not rejected by Build; Validate reports them and
// the reconciler refuses to render them.
package element
