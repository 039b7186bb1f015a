package element

import (
	"fmt"

	"github.com/roach88/flash/internal/ir"
)

// Encoded field names.
const (
	fieldKind     = "kind"
	fieldKey      = "key"
	fieldProps    = "props"
	fieldChildren = "children"
)

// ToIR encodes d as {"kind", "key"?, "props", "children"}.
// Only explicit keys are written; positional keys are implied by order.
func ToIR(d *Descriptor) ir.IRObject {
	props := d.Props.Without()
	if props == nil {
		props = ir.IRObject{}
	}
	obj := ir.IRObject{
		fieldKind:  ir.IRString(d.Kind),
		fieldProps: props,
	}
	if d.Key.Explicit {
		obj[fieldKey] = ir.IRString(d.Key.Name)
	}
	children := make(ir.IRArray, len(d.Children))
	for i, c := range d.Children {
		children[i] = ToIR(c)
	}
	obj[fieldChildren] = children
	return obj
}

// FromIR decodes a tree produced by ToIR.
func FromIR(obj ir.IRObject) (*Descriptor, error) {
	return fromIR(obj, 0)
}

func fromIR(obj ir.IRObject, index int) (*Descriptor, error) {
	kind, ok := obj[fieldKind].(ir.IRString)
	if !ok || kind == "" {
		return nil, fmt.Errorf("descriptor: missing kind")
	}
	d := &Descriptor{Kind: string(kind), Key: Position(index), Props: ir.IRObject{}}
	if k, ok := obj[fieldKey].(ir.IRString); ok {
		d.Key = Explicit(string(k))
	}
	if p, ok := obj[fieldProps]; ok {
		props, ok := p.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("descriptor %s: props must be an object", kind)
		}
		d.Props = props.Without()
	}
	if c, ok := obj[fieldChildren]; ok {
		arr, ok := c.(ir.IRArray)
		if !ok {
			return nil, fmt.Errorf("descriptor %s: children must be a list", kind)
		}
		for i, elem := range arr {
			co, ok := elem.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("descriptor %s: child %d is not an object", kind, i)
			}
			child, err := fromIR(co, i)
			if err != nil {
				return nil, err
			}
			d.Children = append(d.Children, child)
		}
	}
	return d, nil
}

// Decode builds a descriptor from YAML- or JSON-decoded data.
//
// A string is a text node. A mapping has a required "kind", optional "props"
// (which may carry "key") and optional "children" of the same shape:
//
//	kind: ul
//	children:
//	  - {kind: li, props: {key: 1}, children: ["Item 1"]}
func Decode(v any) (*Descriptor, error) {
	switch val := v.(type) {
	case string:
		return BuildText(nil, val), nil
	case map[string]any:
		return decodeMap(val)
	default:
		return nil, fmt.Errorf("descriptor: expected string or mapping, got %T", v)
	}
}

func decodeMap(m map[string]any) (*Descriptor, error) {
	for k := range m {
		if k != fieldKind && k != fieldProps && k != fieldChildren {
			return nil, fmt.Errorf("descriptor: unknown field %q", k)
		}
	}
	kind, ok := m[fieldKind].(string)
	if !ok || kind == "" {
		return nil, fmt.Errorf("descriptor: kind is required")
	}

	var props ir.IRObject
	if raw, ok := m[fieldProps]; ok && raw != nil {
		pm, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("descriptor %s: props must be a mapping", kind)
		}
		var err error
		props, err = ir.ObjectFromGo(pm)
		if err != nil {
			return nil, fmt.Errorf("descriptor %s: props: %w", kind, err)
		}
	}

	var children []Child
	if raw, ok := m[fieldChildren]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("descriptor %s: children must be a list", kind)
		}
		for i, item := range list {
			child, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("%s child %d: %w", kind, i, err)
			}
			children = append(children, child)
		}
	}

	if kind == TextKind {
		value, _ := props[ValueProp].(ir.IRString)
		return BuildText(props.Without(ValueProp), string(value)), nil
	}
	return Build(kind, props, children...), nil
}
