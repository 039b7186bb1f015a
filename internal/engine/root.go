package engine

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/ir"
)

// Synthetic root descriptor wrapping every rendered tree.
const (
	RootKind = "#root"
	RootKey  = "root"
)

// Root owns the render trees of its mount targets.
//
// Every target gets its own committed tree, session and torn state. A Render
// reconciles the new descriptor against the tree committed into the same
// target; the first render into a target mounts from scratch. Targets never
// share fibers, so alternating between them stays incremental for each.
//
// Handles must be comparable; they key the per-target state.
//
// Thread-safety: Root is not safe for concurrent use. Calls to Render on one
// Root must be serialized by the caller. Distinct Roots are independent.
type Root struct {
	provider host.Provider
	clock    *Clock
	sessions SessionGenerator
	observer Observer

	mounts map[host.Handle]*mount
	last   host.Handle // target of the most recent render attempt
}

// mount is the state Root keeps for one target.
type mount struct {
	current *Fiber
	session string

	// torn holds the commit error that left the target half-updated.
	torn error
}

// RootOption configures a Root.
type RootOption func(*Root)

// WithSessionGenerator sets the generator for mount session ids.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) RootOption {
	return func(r *Root) {
		r.sessions = g
	}
}

// WithObserver registers an observer called after every successful commit.
func WithObserver(o Observer) RootOption {
	return func(r *Root) {
		r.observer = o
	}
}

// WithClock sets the commit clock. Default: a fresh clock starting at 0.
func WithClock(c *Clock) RootOption {
	return func(r *Root) {
		r.clock = c
	}
}

// NewRoot creates a Root committing through p.
func NewRoot(p host.Provider, opts ...RootOption) *Root {
	r := &Root{
		provider: p,
		clock:    NewClock(),
		sessions: UUIDv7Generator{},
		mounts:   make(map[host.Handle]*mount),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render makes the visual tree under target reflect d.
//
// d becomes the single child of a synthetic root fiber bound to target. A nil
// d renders an empty root, removing whatever was mounted before. The returned
// Report lists the effects applied, in commit order.
//
// Errors:
//   - INVALID_TARGET: target is nil or rejected by the provider; nothing changes
//   - DUPLICATE_KEY: sibling keys collide; nothing changes
//   - UNSUPPORTED_KIND, PROVIDER_ERROR: the commit failed part-way and the
//     target is torn
//   - TORN_TARGET: an earlier commit into target failed; call Reset first
//
// If the observer fails, Render returns the report together with the error;
// the render itself has been applied.
func (r *Root) Render(d *element.Descriptor, target host.Handle) (*Report, error) {
	if err := r.checkTarget(target); err != nil {
		return nil, err
	}
	m := r.mounts[target]
	if m != nil && m.torn != nil {
		return nil, NewTornTargetError(m.torn)
	}
	r.last = target

	remount := m == nil
	wip := &Fiber{
		Kind:   RootKind,
		Key:    element.Explicit(RootKey),
		Props:  ir.IRObject{},
		handle: target,
		desc:   wrap(d),
	}
	if !remount {
		wip.alternate = m.current
	}

	if err := reconcile(wip); err != nil {
		slog.Debug("render rejected", "error", err)
		return nil, err
	}

	rep, err := commit(r.provider, wip)
	if err != nil {
		r.mounts[target] = &mount{torn: err}
		slog.Warn("commit failed, target torn", "target", host.LabelOf(target), "error", err)
		return nil, err
	}

	if remount {
		m = &mount{session: r.sessions.Generate()}
		r.mounts[target] = m
	}
	m.current = wip

	rep.Seq = r.clock.Next()
	rep.SessionID = m.session
	rep.Remount = remount

	slog.Debug("render committed",
		"session", rep.SessionID,
		"seq", rep.Seq,
		"remount", remount,
		"adds", rep.Adds,
		"updates", rep.Updates,
		"moves", rep.Moves,
		"deletes", rep.Deletes,
	)

	if r.observer != nil {
		c := Commit{
			SessionID: rep.SessionID,
			Seq:       rep.Seq,
			Target:    host.LabelOf(target),
			Tree:      d,
			Report:    rep,
		}
		if err := r.observer.Committed(c); err != nil {
			slog.Error("observer failed", "session", rep.SessionID, "seq", rep.Seq, "error", err)
			return rep, fmt.Errorf("observer: %w", err)
		}
	}
	return rep, nil
}

// Current returns the committed root fiber of the most recently rendered
// target, nil before the first render or once that target is torn.
// The tree must not be modified.
func (r *Root) Current() *Fiber {
	return r.CurrentOf(r.last)
}

// CurrentOf returns the committed root fiber of target.
func (r *Root) CurrentOf(target host.Handle) *Fiber {
	if m := r.lookup(target); m != nil {
		return m.current
	}
	return nil
}

// Target returns the most recently rendered target.
func (r *Root) Target() host.Handle {
	return r.last
}

// SessionID returns the mount session of the most recently rendered target,
// "" if it is not mounted.
func (r *Root) SessionID() string {
	if m := r.lookup(r.last); m != nil {
		return m.session
	}
	return ""
}

// Torn returns the commit error that tore the most recently rendered target.
func (r *Root) Torn() error {
	return r.TornOf(r.last)
}

// TornOf returns the commit error that tore target, if any.
func (r *Root) TornOf(target host.Handle) error {
	if m := r.lookup(target); m != nil {
		return m.torn
	}
	return nil
}

// Unmount removes the tree committed into target and forgets it.
// Unmounting a target that holds nothing is a no-op.
func (r *Root) Unmount(target host.Handle) error {
	m := r.lookup(target)
	if m == nil || m.current == nil {
		return nil
	}
	for c := m.current.child; c != nil; c = c.sibling {
		if err := r.provider.RemoveChild(target, c.handle); err != nil {
			m.torn = commitError(c, "unmount", err)
			m.current = nil
			m.session = ""
			return m.torn
		}
	}
	slog.Debug("unmounted", "session", m.session, "target", host.LabelOf(target))
	delete(r.mounts, target)
	return nil
}

// Reset forgets the committed tree and any torn state of target without
// touching the visual tree. The next Render into target mounts from scratch;
// the caller is responsible for clearing a torn target first.
func (r *Root) Reset(target host.Handle) {
	if r.lookup(target) != nil {
		delete(r.mounts, target)
	}
}

// lookup returns the state of target, nil for an unknown or unusable handle.
func (r *Root) lookup(target host.Handle) *mount {
	if !hashable(target) {
		return nil
	}
	return r.mounts[target]
}

func (r *Root) checkTarget(target host.Handle) error {
	if target == nil {
		return NewInvalidTargetError(fmt.Errorf("nil handle"))
	}
	if !hashable(target) {
		return NewInvalidTargetError(fmt.Errorf("handle of type %T is not comparable", target))
	}
	if v, ok := r.provider.(host.TargetValidator); ok {
		if err := v.ValidTarget(target); err != nil {
			return NewInvalidTargetError(err)
		}
	}
	return nil
}

func hashable(h host.Handle) bool {
	return h != nil && reflect.TypeOf(h).Comparable()
}

// wrap builds the synthetic root descriptor holding d as its only child.
// d keeps an explicit key; otherwise it sits at position 0.
func wrap(d *element.Descriptor) *element.Descriptor {
	root := element.Build(RootKind, nil, d)
	root.Key = element.Explicit(RootKey)
	return root
}
