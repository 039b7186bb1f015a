package host

import (
	"errors"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/flash/internal/ir"
)

// DefaultTags is the tag set a Memory provider recognizes unless configured
// otherwise.
var DefaultTags = []string{
	"a", "article", "aside", "b", "body", "button", "div", "em", "footer",
	"form", "h1", "h2", "h3", "h4", "h5", "h6", "header", "i", "img", "input",
	"label", "li", "main", "nav", "ol", "option", "p", "pre", "section",
	"select", "span", "strong", "table", "tbody", "td", "textarea", "th",
	"thead", "tr", "ul",
}

// Node is a Memory handle.
type Node struct {
	id       int
	tag      string
	text     bool
	value    string
	attrs    ir.IRObject
	parent   *Node
	children []*Node
	owner    *Memory
	released bool
}

// ID returns the node's allocation number, unique within its Memory.
func (n *Node) ID() int { return n.id }

// Tag returns the element tag, or "#text" for text nodes.
func (n *Node) Tag() string {
	if n.text {
		return "#text"
	}
	return n.tag
}

// Value returns a text node's content.
func (n *Node) Value() string { return n.value }

// Attrs returns a copy of the node's properties.
func (n *Node) Attrs() ir.IRObject { return n.attrs.Without() }

// Parent returns the node's parent, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the node's children in order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Released reports whether the node was removed from the tree.
func (n *Node) Released() bool { return n.released }

// Label implements Labeler: tag#id.
func (n *Node) Label() string {
	return n.Tag() + "#" + strconv.Itoa(n.id)
}

// String renders the subtree as markup. Attributes are sorted, text escaped.
func (n *Node) String() string {
	var b strings.Builder
	writeMarkup(&b, n)
	return b.String()
}

// InnerString renders only the node's children, which is what a mount target
// displays.
func (n *Node) InnerString() string {
	var b strings.Builder
	for _, c := range n.children {
		writeMarkup(&b, c)
	}
	return b.String()
}

// writeMarkup renders iteratively with an explicit stack of open tags.
func writeMarkup(b *strings.Builder, root *Node) {
	type item struct {
		n     *Node
		close bool
	}
	stack := []item{{n: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.close {
			b.WriteString("</" + it.n.tag + ">")
			continue
		}
		n := it.n
		if n.text {
			b.WriteString(html.EscapeString(n.value))
			continue
		}
		b.WriteString("<" + n.tag)
		for _, k := range n.attrs.SortedKeys() {
			writeAttr(b, k, n.attrs[k])
		}
		b.WriteString(">")
		stack = append(stack, item{n: n, close: true})
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, item{n: n.children[i]})
		}
	}
}

func writeAttr(b *strings.Builder, name string, v ir.IRValue) {
	switch val := v.(type) {
	case ir.IRBool:
		if val {
			b.WriteString(" " + name)
		}
	case ir.IRString:
		b.WriteString(" " + name + `="` + html.EscapeString(string(val)) + `"`)
	default:
		enc, err := ir.MarshalCanonical(v)
		if err != nil {
			return
		}
		b.WriteString(" " + name + `="` + html.EscapeString(string(enc)) + `"`)
	}
}

// Memory is an in-process visual tree.
//
// Memory is not safe for concurrent use; disjoint mount targets on one Memory
// must still be rendered from one goroutine.
type Memory struct {
	tags   map[string]bool
	anyTag bool
	nextID int
}

// MemoryOption configures a Memory.
type MemoryOption func(*Memory)

// WithTags replaces the recognized tag set.
func WithTags(tags ...string) MemoryOption {
	return func(m *Memory) {
		m.tags = make(map[string]bool, len(tags))
		for _, t := range tags {
			m.tags[t] = true
		}
	}
}

// WithAnyTag makes CreateNode accept every non-empty tag.
func WithAnyTag() MemoryOption {
	return func(m *Memory) { m.anyTag = true }
}

// NewMemory creates an empty Memory recognizing DefaultTags.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{}
	WithTags(DefaultTags...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRoot allocates a detached container to mount into. The tag is not
// checked against the recognized set.
func (m *Memory) NewRoot(tag string) *Node {
	return m.alloc(&Node{tag: tag, attrs: ir.IRObject{}})
}

func (m *Memory) alloc(n *Node) *Node {
	m.nextID++
	n.id = m.nextID
	n.owner = m
	return n
}

// node converts h to a *Node owned by m.
func (m *Memory) node(h Handle, role string) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%s: not a memory node: %T", role, h)
	}
	if n.owner != m {
		return nil, fmt.Errorf("%s: %s belongs to another tree", role, n.Label())
	}
	if n.released {
		return nil, fmt.Errorf("%s: %s was released", role, n.Label())
	}
	return n, nil
}

// CreateNode implements Provider.
func (m *Memory) CreateNode(kind string) (Handle, error) {
	if kind == "" || (!m.anyTag && !m.tags[kind]) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return m.alloc(&Node{tag: kind, attrs: ir.IRObject{}}), nil
}

// CreateTextNode implements Provider.
func (m *Memory) CreateTextNode(value string) (Handle, error) {
	return m.alloc(&Node{text: true, value: value, attrs: ir.IRObject{}}), nil
}

// SetProperties implements Provider. On text nodes "nodeValue" sets the content.
func (m *Memory) SetProperties(h Handle, props ir.IRObject) error {
	n, err := m.node(h, "set properties")
	if err != nil {
		return err
	}
	for _, k := range props.SortedKeys() {
		v := props[k]
		if n.text && k == "nodeValue" {
			if s, ok := v.(ir.IRString); ok {
				n.value = string(s)
			} else {
				n.value = ""
			}
			continue
		}
		if _, isNull := v.(ir.IRNull); isNull {
			delete(n.attrs, k)
			continue
		}
		n.attrs[k] = v
	}
	return nil
}

// InsertBefore implements Provider.
func (m *Memory) InsertBefore(parent, child, anchor Handle) error {
	p, err := m.node(parent, "insert")
	if err != nil {
		return err
	}
	if p.text {
		return fmt.Errorf("insert: %s cannot have children", p.Label())
	}
	c, err := m.node(child, "insert")
	if err != nil {
		return err
	}
	for a := p; a != nil; a = a.parent {
		if a == c {
			return fmt.Errorf("insert: %s is an ancestor of %s", c.Label(), p.Label())
		}
	}
	var a *Node
	if anchor != nil {
		if a, err = m.node(anchor, "insert anchor"); err != nil {
			return err
		}
		if a.parent != p {
			return fmt.Errorf("insert anchor %s: %w %s", a.Label(), ErrNotAChild, p.Label())
		}
		if a == c {
			return nil
		}
	}
	if c.parent != nil {
		c.parent.detach(c)
	}
	idx := len(p.children)
	if a != nil {
		idx = slices.Index(p.children, a)
	}
	p.children = slices.Insert(p.children, idx, c)
	c.parent = p
	return nil
}

// RemoveChild implements Provider. The removed subtree is released.
func (m *Memory) RemoveChild(parent, child Handle) error {
	p, err := m.node(parent, "remove")
	if err != nil {
		return err
	}
	c, err := m.node(child, "remove")
	if err != nil {
		return err
	}
	if c.parent != p {
		return fmt.Errorf("remove %s: %w %s", c.Label(), ErrNotAChild, p.Label())
	}
	p.detach(c)
	release(c)
	return nil
}

func (n *Node) detach(c *Node) {
	if i := slices.Index(n.children, c); i >= 0 {
		n.children = slices.Delete(n.children, i, i+1)
	}
	c.parent = nil
}

func release(root *Node) {
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.released = true
		stack = append(stack, n.children...)
	}
}

// ValidTarget implements TargetValidator: a target is a live container node
// of this Memory.
func (m *Memory) ValidTarget(h Handle) error {
	n, err := m.node(h, "target")
	if err != nil {
		return err
	}
	if n.text {
		return errors.New("target: text nodes cannot be mount targets")
	}
	return nil
}
