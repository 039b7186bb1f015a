package element

import (
	"fmt"
	"strconv"

	"github.com/roach88/flash/internal/ir"
)

// TextKind is the reserved kind of text descriptors.
const TextKind = "TEXT_ELEMENT"

// Reserved property names.
const (
	// KeyProp supplies an explicit sibling key. It is stripped from Props.
	KeyProp = "key"

	// ValueProp holds the string value of a text descriptor.
	ValueProp = "nodeValue"
)

// Key identifies a child among its siblings.
//
// Explicit keys come from the "key" property; positional keys are the child's
// index. The two never collide: an explicit "0" differs from position 0.
type Key struct {
	Name     string
	Explicit bool
}

// Explicit returns the key for a caller-supplied key value.
func Explicit(name string) Key {
	return Key{Name: name, Explicit: true}
}

// Position returns the positional key for index i.
func Position(i int) Key {
	return Key{Name: strconv.Itoa(i)}
}

// String renders explicit keys as-is and positional keys as #i.
func (k Key) String() string {
	if k.Explicit {
		return k.Name
	}
	return "#" + k.Name
}

// Descriptor is an immutable description of one node in the desired tree.
// Descriptors are built fresh for every render and never mutated after Build.
type Descriptor struct {
	Kind     string
	Key      Key
	Props    ir.IRObject
	Children []*Descriptor
}

// Child is anything Build accepts as a child: a *Descriptor or a Text.
type Child interface {
	isChild()
}

// Text is a primitive string child. Build turns it into a text descriptor.
type Text string

func (Text) isChild() {}

func (*Descriptor) isChild() {}

// Build creates a descriptor of the given kind.
//
// Each child is normalised (Text becomes a text descriptor, nil children are
// skipped) and assigned its key: the explicit "key" property when present,
// otherwise its index among the kept children. The kind is not validated; an
// unknown tag is only detected when the host rejects it at commit time.
func Build(kind string, props ir.IRObject, children ...Child) *Descriptor {
	d := &Descriptor{
		Kind:  kind,
		Props: props.Without(KeyProp),
	}
	if d.Props == nil {
		d.Props = ir.IRObject{}
	}
	if k, ok := explicitKey(props); ok {
		d.Key = k
	}
	for _, c := range children {
		var child *Descriptor
		switch v := c.(type) {
		case nil:
			continue
		case Text:
			child = BuildText(nil, string(v))
		case *Descriptor:
			if v == nil {
				continue
			}
			child = v
		}
		d.Children = append(d.Children, child.withKey(keyFor(child, len(d.Children))))
	}
	return d
}

// BuildText creates a text descriptor holding value.
func BuildText(props ir.IRObject, value string) *Descriptor {
	p := props.Without(KeyProp)
	if p == nil {
		p = ir.IRObject{}
	}
	p[ValueProp] = ir.IRString(value)
	d := &Descriptor{Kind: TextKind, Props: p}
	if k, ok := explicitKey(props); ok {
		d.Key = k
	}
	return d
}

// keyFor resolves the sibling key of child at index i.
// Explicit keys were captured from props before "key" was stripped.
func keyFor(child *Descriptor, i int) Key {
	if child.Key.Explicit {
		return child.Key
	}
	return Position(i)
}

// withKey returns d with key k, copying d if it already carries a different
// key so shared descriptors are never mutated.
func (d *Descriptor) withKey(k Key) *Descriptor {
	if d.Key == k {
		return d
	}
	cp := *d
	cp.Key = k
	return &cp
}

// Keyed is Build with an explicit key.
func Keyed(key any, kind string, props ir.IRObject, children ...Child) *Descriptor {
	if props == nil {
		props = ir.IRObject{}
	} else {
		props = props.Without()
	}
	switch k := key.(type) {
	case int:
		props[KeyProp] = ir.IRInt(k)
	case string:
		props[KeyProp] = ir.IRString(k)
	default:
		props[KeyProp] = ir.IRString(fmt.Sprint(k))
	}
	return Build(kind, props, children...)
}

// explicitKey extracts the "key" property as a Key.
func explicitKey(props ir.IRObject) (Key, bool) {
	v, ok := props[KeyProp]
	if !ok {
		return Key{}, false
	}
	switch k := v.(type) {
	case ir.IRString:
		return Explicit(string(k)), true
	case ir.IRInt:
		return Explicit(strconv.FormatInt(int64(k), 10)), true
	case ir.IRBool:
		return Explicit(strconv.FormatBool(bool(k))), true
	default:
		b, err := ir.MarshalCanonical(v)
		if err != nil {
			return Explicit(fmt.Sprint(v)), true
		}
		return Explicit(string(b)), true
	}
}

// IsText reports whether d is a text descriptor.
func (d *Descriptor) IsText() bool {
	return d.Kind == TextKind
}

// Value returns the string value of a text descriptor, or "".
func (d *Descriptor) Value() string {
	if s, ok := d.Props[ValueProp].(ir.IRString); ok {
		return string(s)
	}
	return ""
}
