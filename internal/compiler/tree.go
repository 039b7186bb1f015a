package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/ir"
)

// CompileTree converts a CUE value into a descriptor tree.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// A string is a text node. A struct has a required kind, and optional key,
// props and children:
//
//	tree: {
//		kind: "ul"
//		children: [
//			{kind: "li", key: 1, children: ["Item 1"]},
//		]
//	}
//
// key may also be given as props.key. Every value must be concrete; floats
// and null are rejected.
func CompileTree(v cue.Value) (*element.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if v.IncompleteKind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return element.BuildText(nil, s), nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   "tree",
			Message: fmt.Sprintf("expected struct or string, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		switch iter.Label() {
		case "kind", "key", "props", "children":
		default:
			return nil, &CompileError{
				Field:   iter.Label(),
				Message: "unknown field; expected kind, key, props or children",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return nil, &CompileError{
			Field:   "kind",
			Message: "kind is required",
			Pos:     v.Pos(),
		}
	}
	kind, err := kindVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if kind == "" {
		return nil, &CompileError{Field: "kind", Message: "kind must not be empty", Pos: kindVal.Pos()}
	}

	props := ir.IRObject{}
	if propsVal := v.LookupPath(cue.ParsePath("props")); propsVal.Exists() {
		pv, err := compileValue(propsVal, "props")
		if err != nil {
			return nil, err
		}
		obj, ok := pv.(ir.IRObject)
		if !ok {
			return nil, &CompileError{Field: "props", Message: "props must be a struct", Pos: propsVal.Pos()}
		}
		props = obj
	}
	if keyVal := v.LookupPath(cue.ParsePath("key")); keyVal.Exists() {
		k, err := compileValue(keyVal, "key")
		if err != nil {
			return nil, err
		}
		props[element.KeyProp] = k
	}

	if kind == element.TextKind {
		value, _ := props[element.ValueProp].(ir.IRString)
		return element.BuildText(props.Without(element.ValueProp), string(value)), nil
	}

	var children []element.Child
	if childrenVal := v.LookupPath(cue.ParsePath("children")); childrenVal.Exists() {
		list, err := childrenVal.List()
		if err != nil {
			return nil, &CompileError{Field: "children", Message: "children must be a list", Pos: childrenVal.Pos()}
		}
		for i := 0; list.Next(); i++ {
			child, err := CompileTree(list.Value())
			if err != nil {
				return nil, fmt.Errorf("%s child %d: %w", kind, i, err)
			}
			children = append(children, child)
		}
	}

	return element.Build(kind, props, children...), nil
}

// compileValue converts a concrete CUE value into an IRValue.
// Floats are forbidden: property values must compare exactly.
func compileValue(v cue.Value, field string) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := compileValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := compileValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int or string instead",
			Pos:     v.Pos(),
		}
	case cue.NullKind:
		return nil, &CompileError{Field: field, Message: "null is not a property value", Pos: v.Pos()}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
