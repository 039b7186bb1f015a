package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/flash/internal/ir"
)

// marshalTree converts an encoded descriptor tree to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so the stored text hashes to tree_hash.
func marshalTree(tree ir.IRObject) (string, error) {
	if tree == nil {
		tree = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("marshal tree: %w", err)
	}
	return string(data), nil
}

// unmarshalTree parses stored JSON TEXT back into an IRObject.
// ir.IRObject.UnmarshalJSON decodes numbers via json.Number, so large
// integers survive without float64 precision loss.
func unmarshalTree(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	return obj, nil
}
