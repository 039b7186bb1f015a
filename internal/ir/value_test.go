package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestSortedKeysUTF16SurrogateOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 but after it in UTF-8.
	obj := IRObject{"\uFF61": IRInt(1), "\U0001F600": IRInt(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want bool
	}{
		{"same string", IRString("x"), IRString("x"), true},
		{"different string", IRString("x"), IRString("y"), false},
		{"string vs int", IRString("1"), IRInt(1), false},
		{"ints", IRInt(3), IRInt(3), true},
		{"bools", IRBool(true), IRBool(false), false},
		{"nulls", IRNull{}, IRNull{}, true},
		{"nil vs null", nil, IRNull{}, false},
		{"arrays", IRArray{IRInt(1), IRInt(2)}, IRArray{IRInt(1), IRInt(2)}, true},
		{"array order", IRArray{IRInt(1), IRInt(2)}, IRArray{IRInt(2), IRInt(1)}, false},
		{"array length", IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(1)}, false},
		{"objects", IRObject{"a": IRInt(1), "b": IRString("x")}, IRObject{"b": IRString("x"), "a": IRInt(1)}, true},
		{"object missing key", IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}, false},
		{"nested objects", IRObject{"s": IRObject{"c": IRString("red")}}, IRObject{"s": IRObject{"c": IRString("red")}}, true},
		{"nested difference", IRObject{"s": IRObject{"c": IRString("red")}}, IRObject{"s": IRObject{"c": IRString("blue")}}, false},
		{"nil object vs empty", IRObject(nil), IRObject{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal must be symmetric")
		})
	}
}

func TestDiff(t *testing.T) {
	from := IRObject{"class": IRString("a"), "id": IRString("x"), "gone": IRBool(true)}
	to := IRObject{"class": IRString("b"), "id": IRString("x"), "title": IRString("t")}

	patch := Diff(from, to)

	assert.Equal(t, IRObject{
		"class": IRString("b"),
		"title": IRString("t"),
		"gone":  IRNull{},
	}, patch)
	assert.Empty(t, Diff(to, to))
}

func TestWithout(t *testing.T) {
	obj := IRObject{"key": IRInt(1), "class": IRString("x")}
	out := obj.Without("key")

	assert.Equal(t, IRObject{"class": IRString("x")}, out)
	assert.Len(t, obj, 2, "original must not be modified")
	assert.Nil(t, IRObject(nil).Without("key"))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"n":    3,
		"s":    "x",
		"b":    true,
		"list": []any{1, "two"},
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"n":    IRInt(3),
		"s":    IRString("x"),
		"b":    IRBool(true),
		"list": IRArray{IRInt(1), IRString("two")},
	}, v)
}

func TestFromGoRejectsFloatsAndNil(t *testing.T) {
	_, err := FromGo(1.5)
	assert.Error(t, err)

	_, err = FromGo(map[string]any{"x": nil})
	assert.Error(t, err)

	_, err = FromGo(json.Number("2.5"))
	assert.Error(t, err)
}

func TestIRObjectJSONRoundTripKeepsNull(t *testing.T) {
	obj := IRObject{"a": IRInt(1), "removed": IRNull{}}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"removed":null}`, string(data))

	var back IRObject
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, EqualObjects(obj, back))
}

func TestIRObjectUnmarshalRejectsFloats(t *testing.T) {
	var obj IRObject
	assert.Error(t, json.Unmarshal([]byte(`{"x": 1.0}`), &obj))

	require.NoError(t, json.Unmarshal([]byte(`{"xs": [1, "a", true]}`), &obj))
	assert.Equal(t, IRObject{"xs": IRArray{IRInt(1), IRString("a"), IRBool(true)}}, obj)
}
