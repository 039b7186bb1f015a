package host

import (
	"fmt"

	"github.com/roach88/flash/internal/ir"
)

// OpKind names a Provider call.
type OpKind string

const (
	OpCreate     OpKind = "create"
	OpCreateText OpKind = "create_text"
	OpSet        OpKind = "set"
	OpInsert     OpKind = "insert"
	OpRemove     OpKind = "remove"
)

// Op is one recorded Provider call. Handles are recorded by label.
type Op struct {
	Kind   OpKind      `json:"op"`
	Node   string      `json:"node,omitempty"`
	Parent string      `json:"parent,omitempty"`
	Anchor string      `json:"anchor,omitempty"`
	Tag    string      `json:"tag,omitempty"`
	Value  string      `json:"value,omitempty"`
	Props  ir.IRObject `json:"props,omitempty"`
	Err    string      `json:"error,omitempty"`
}

// String renders the op on one line, e.g. "insert li#4 -> ul#2 before li#3".
func (o Op) String() string {
	var s string
	switch o.Kind {
	case OpCreate:
		s = fmt.Sprintf("create %s", o.Node)
	case OpCreateText:
		s = fmt.Sprintf("create_text %s %q", o.Node, o.Value)
	case OpSet:
		props, _ := o.Props.MarshalJSON()
		s = fmt.Sprintf("set %s %s", o.Node, props)
	case OpInsert:
		s = fmt.Sprintf("insert %s -> %s", o.Node, o.Parent)
		if o.Anchor != "" {
			s += " before " + o.Anchor
		}
	case OpRemove:
		s = fmt.Sprintf("remove %s <- %s", o.Node, o.Parent)
	default:
		s = string(o.Kind)
	}
	if o.Err != "" {
		s += " (error: " + o.Err + ")"
	}
	return s
}

// Recorder decorates a Provider and logs every call, including failed ones.
type Recorder struct {
	inner Provider
	ops   []Op
}

// NewRecorder wraps p.
func NewRecorder(p Provider) *Recorder {
	return &Recorder{inner: p}
}

// Ops returns the operations recorded since the last Drain.
func (r *Recorder) Ops() []Op {
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Drain returns the recorded operations and clears the log.
func (r *Recorder) Drain() []Op {
	out := r.ops
	r.ops = nil
	return out
}

// Count returns how many recorded operations have kind k.
func (r *Recorder) Count(k OpKind) int {
	n := 0
	for _, o := range r.ops {
		if o.Kind == k {
			n++
		}
	}
	return n
}

func (r *Recorder) record(o Op, err error) {
	if err != nil {
		o.Err = err.Error()
	}
	r.ops = append(r.ops, o)
}

// CreateNode implements Provider.
func (r *Recorder) CreateNode(kind string) (Handle, error) {
	h, err := r.inner.CreateNode(kind)
	r.record(Op{Kind: OpCreate, Node: LabelOf(h), Tag: kind}, err)
	return h, err
}

// CreateTextNode implements Provider.
func (r *Recorder) CreateTextNode(value string) (Handle, error) {
	h, err := r.inner.CreateTextNode(value)
	r.record(Op{Kind: OpCreateText, Node: LabelOf(h), Value: value}, err)
	return h, err
}

// SetProperties implements Provider.
func (r *Recorder) SetProperties(h Handle, props ir.IRObject) error {
	err := r.inner.SetProperties(h, props)
	r.record(Op{Kind: OpSet, Node: LabelOf(h), Props: props.Without()}, err)
	return err
}

// InsertBefore implements Provider.
func (r *Recorder) InsertBefore(parent, child, anchor Handle) error {
	err := r.inner.InsertBefore(parent, child, anchor)
	r.record(Op{Kind: OpInsert, Node: LabelOf(child), Parent: LabelOf(parent), Anchor: LabelOf(anchor)}, err)
	return err
}

// RemoveChild implements Provider.
func (r *Recorder) RemoveChild(parent, child Handle) error {
	err := r.inner.RemoveChild(parent, child)
	r.record(Op{Kind: OpRemove, Node: LabelOf(child), Parent: LabelOf(parent)}, err)
	return err
}

// ValidTarget delegates to the wrapped provider when it validates targets.
func (r *Recorder) ValidTarget(h Handle) error {
	if v, ok := r.inner.(TargetValidator); ok {
		return v.ValidTarget(h)
	}
	if h == nil {
		return fmt.Errorf("target: nil handle")
	}
	return nil
}

// LabelOf returns h's label, "" for nil.
func LabelOf(h Handle) string {
	switch v := h.(type) {
	case nil:
		return ""
	case Labeler:
		if n, ok := v.(*Node); ok && n == nil {
			return ""
		}
		return v.Label()
	default:
		return fmt.Sprintf("%T(%v)", h, h)
	}
}
