package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flash/internal/ir"
)

func TestBuildNormalizesTextChildren(t *testing.T) {
	d := Build("h1", nil, Text("Hello World"))

	require.Len(t, d.Children, 1)
	child := d.Children[0]
	assert.Equal(t, TextKind, child.Kind)
	assert.True(t, child.IsText())
	assert.Equal(t, "Hello World", child.Value())
	assert.Empty(t, child.Children)
	assert.Equal(t, Position(0), child.Key)
}

func TestBuildAssignsKeys(t *testing.T) {
	d := Build("ul", nil,
		Keyed("a", "li", nil),
		Build("li", nil),
		Keyed(7, "li", nil),
		nil,
		Text("tail"),
	)

	require.Len(t, d.Children, 4, "nil children are skipped")
	assert.Equal(t, Explicit("a"), d.Children[0].Key)
	assert.Equal(t, Position(1), d.Children[1].Key)
	assert.Equal(t, Explicit("7"), d.Children[2].Key)
	assert.Equal(t, Position(3), d.Children[3].Key)
}

func TestBuildStripsKeyProperty(t *testing.T) {
	props := ir.IRObject{"key": ir.IRString("x"), "class": ir.IRString("item")}
	d := Build("li", props)

	assert.Equal(t, Explicit("x"), d.Key)
	assert.Equal(t, ir.IRObject{"class": ir.IRString("item")}, d.Props)
	assert.Contains(t, props, "key", "caller's props must not be modified")
}

func TestBuildDoesNotMutateSharedChild(t *testing.T) {
	shared := Build("li", nil)
	a := Build("ul", nil, Build("li", nil), shared)
	b := Build("ul", nil, shared)

	assert.Equal(t, Position(1), a.Children[1].Key)
	assert.Equal(t, Position(0), b.Children[0].Key)
}

func TestExplicitKeyNeverCollidesWithPosition(t *testing.T) {
	assert.NotEqual(t, Explicit("0"), Position(0))
	assert.Equal(t, "0", Explicit("0").String())
	assert.Equal(t, "#0", Position(0).String())
}

func TestBuildText(t *testing.T) {
	d := BuildText(ir.IRObject{"class": ir.IRString("t")}, "hi")

	assert.Equal(t, TextKind, d.Kind)
	assert.Equal(t, "hi", d.Value())
	assert.Equal(t, ir.IRString("t"), d.Props["class"])
	assert.Empty(t, d.Children)
}

func TestValidateDuplicateKey(t *testing.T) {
	d := Build("div", nil,
		Build("ul", nil,
			Keyed(1, "li", nil),
			Keyed(2, "li", nil),
			Keyed(1, "li", nil),
		),
	)

	err := d.Validate()
	require.Error(t, err)

	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, Explicit("1"), dup.Key)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 2, dup.Second)
	assert.Equal(t, "/#0/#0", dup.Parent.String())
}

func TestValidateAcceptsUniqueKeys(t *testing.T) {
	d := Build("ul", nil, Keyed(1, "li", nil), Keyed(2, "li", nil), Text("x"))
	assert.NoError(t, d.Validate())
	assert.Equal(t, 5, d.Count())
}

func TestCodecRoundTrip(t *testing.T) {
	d := Build("ul", ir.IRObject{"class": ir.IRString("list")},
		Keyed(2, "li", nil, Text("Item 2")),
		Build("li", ir.IRObject{"hidden": ir.IRBool(true)}),
	)

	back, err := FromIR(ToIR(d))
	require.NoError(t, err)
	assert.Equal(t, ToIR(d), ToIR(back))
	assert.Equal(t, Explicit("2"), back.Children[0].Key)
	assert.Equal(t, Position(1), back.Children[1].Key)
	assert.Equal(t, "Item 2", back.Children[0].Children[0].Value())
}

func TestFromIRErrors(t *testing.T) {
	_, err := FromIR(ir.IRObject{})
	assert.Error(t, err)

	_, err = FromIR(ir.IRObject{"kind": ir.IRString("ul"), "children": ir.IRString("x")})
	assert.Error(t, err)
}

func TestDecodeYAML(t *testing.T) {
	src := `
kind: ul
props: {class: list}
children:
  - {kind: li, props: {key: 1}, children: ["Item 1"]}
  - {kind: li, props: {key: 2}, children: ["Item 2"]}
  - "tail"
`
	var raw any
	require.NoError(t, yaml.Unmarshal([]byte(src), &raw))

	d, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "ul", d.Kind)
	assert.Equal(t, ir.IRString("list"), d.Props["class"])
	require.Len(t, d.Children, 3)
	assert.Equal(t, Explicit("1"), d.Children[0].Key)
	assert.Equal(t, "Item 1", d.Children[0].Children[0].Value())
	assert.Equal(t, Position(2), d.Children[2].Key)
	assert.True(t, d.Children[2].IsText())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"not a tree", 42},
		{"missing kind", map[string]any{"props": map[string]any{}}},
		{"unknown field", map[string]any{"kind": "div", "child": []any{}}},
		{"float prop", map[string]any{"kind": "div", "props": map[string]any{"w": 1.5}}},
		{"bad children", map[string]any{"kind": "div", "children": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "/", Path(nil).String())
	p := Path{Position(0)}.Child(Explicit("2"))
	assert.Equal(t, "/#0/2", p.String())
}
