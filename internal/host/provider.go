// Package host defines the visual tree the engine commits into.
//
// The engine never touches a concrete UI toolkit. It drives a Provider, which
// creates nodes, assigns properties and attaches or detaches children. Memory
// is a complete in-process Provider used by the CLI, the scenario harness and
// the tests; Recorder decorates any Provider with an operation log.
package host

import (
	"errors"

	"github.com/roach88/flash/internal/ir"
)

// Handle is an opaque reference to one node of the visual tree.
// Handles are compared with ==; providers must return comparable values.
type Handle any

// ErrUnsupportedKind is returned (wrapped) by CreateNode for unknown tags.
var ErrUnsupportedKind = errors.New("unsupported kind")

// ErrNotAChild is returned (wrapped) when an anchor or removed node is not a
// child of the given parent.
var ErrNotAChild = errors.New("not a child of parent")

// Provider is the visual tree capability supplied by the host environment.
type Provider interface {
	// CreateNode allocates a container node of the given tag.
	// Fails with ErrUnsupportedKind if kind is not a recognized tag.
	CreateNode(kind string) (Handle, error)

	// CreateTextNode allocates a leaf text node holding value.
	CreateTextNode(value string) (Handle, error)

	// SetProperties applies each property onto h. A value of ir.IRNull{}
	// removes the property. Unknown names are passed through opaquely.
	SetProperties(h Handle, props ir.IRObject) error

	// InsertBefore inserts child under parent immediately before anchor,
	// or at the end when anchor is nil. Inserting an attached child moves it.
	InsertBefore(parent, child, anchor Handle) error

	// RemoveChild detaches child from parent and releases it.
	RemoveChild(parent, child Handle) error
}

// TargetValidator is implemented by providers that can tell whether a handle
// is usable as a mount target.
type TargetValidator interface {
	ValidTarget(h Handle) error
}

// Labeler is implemented by handles with a stable human-readable identity,
// used in operation logs and journals.
type Labeler interface {
	Label() string
}
