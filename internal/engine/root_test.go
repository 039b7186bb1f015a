package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/ir"
)

type fixture struct {
	mem  *host.Memory
	rec  *host.Recorder
	root *Root
	main *host.Node
}

func newFixture(t *testing.T, opts ...RootOption) *fixture {
	t.Helper()
	mem := host.NewMemory()
	rec := host.NewRecorder(mem)
	opts = append([]RootOption{WithSessionGenerator(NewFixedGenerator("s1", "s2", "s3", "s4"))}, opts...)
	return &fixture{
		mem:  mem,
		rec:  rec,
		root: NewRoot(rec, opts...),
		main: mem.NewRoot("div"),
	}
}

func (fx *fixture) render(t *testing.T, d *element.Descriptor) *Report {
	t.Helper()
	fx.rec.Drain()
	rep, err := fx.root.Render(d, fx.main)
	require.NoError(t, err)
	return rep
}

func item(key any, text string) *element.Descriptor {
	return element.Keyed(key, "li", nil, element.Text(text))
}

func list(items ...*element.Descriptor) *element.Descriptor {
	children := make([]element.Child, len(items))
	for i, it := range items {
		children[i] = it
	}
	return element.Build("ul", nil, children...)
}

func letters(keys ...string) *element.Descriptor {
	items := make([]*element.Descriptor, len(keys))
	for i, k := range keys {
		items[i] = item(k, k)
	}
	return list(items...)
}

func path(keys ...element.Key) element.Path {
	return element.Path(keys)
}

func handleAt(t *testing.T, r *Root, p element.Path) host.Handle {
	t.Helper()
	f, ok := r.Current().Find(p)
	require.True(t, ok, "no fiber at %s", p)
	return f.Handle()
}

func TestRender_FirstMountAddsEverything(t *testing.T) {
	fx := newFixture(t)

	rep := fx.render(t, letters("a", "b"))

	assert.True(t, rep.Remount)
	assert.Equal(t, "s1", rep.SessionID)
	assert.Equal(t, int64(1), rep.Seq)
	assert.Equal(t, 5, rep.Adds)
	assert.Zero(t, rep.Updates+rep.Moves+rep.Deletes)

	want := []EffectRecord{
		{Op: OpAdd, Path: "/#0", Kind: "ul"},
		{Op: OpAdd, Path: "/#0/a", Kind: "li"},
		{Op: OpAdd, Path: "/#0/a/#0", Kind: element.TextKind},
		{Op: OpAdd, Path: "/#0/b", Kind: "li"},
		{Op: OpAdd, Path: "/#0/b/#0", Kind: element.TextKind},
	}
	if diff := cmp.Diff(want, rep.Effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", fx.main.InnerString())
}

func TestRender_Idempotent(t *testing.T) {
	fx := newFixture(t)
	tree := func() *element.Descriptor {
		return element.Build("div", ir.Props(ir.O("class", ir.IRString("app"))),
			element.Build("h1", nil, element.Text("Title")),
			letters("a", "b", "c"),
		)
	}

	fx.render(t, tree())
	rep := fx.render(t, tree())

	assert.True(t, rep.Empty(), "second render must apply no effects: %+v", rep.Effects)
	assert.False(t, rep.Remount)
	assert.Equal(t, "s1", rep.SessionID)
	assert.Equal(t, int64(2), rep.Seq)
	assert.Empty(t, fx.rec.Ops(), "no provider calls on identical re-render")
}

func TestRender_KeyStability(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, list(
		element.Keyed("a", "li", ir.Props(ir.O("class", ir.IRString("x"))), element.Text("A")),
		item("b", "B"),
	))
	pa := path(element.Position(0), element.Explicit("a"))
	pb := path(element.Position(0), element.Explicit("b"))
	ha, hb := handleAt(t, fx.root, pa), handleAt(t, fx.root, pb)

	rep := fx.render(t, list(
		item("b", "B"),
		element.Keyed("a", "li", ir.Props(ir.O("class", ir.IRString("y"))), element.Text("A2")),
	))

	assert.Same(t, ha, handleAt(t, fx.root, pa))
	assert.Same(t, hb, handleAt(t, fx.root, pb))
	assert.Zero(t, rep.Adds)
	assert.Zero(t, rep.Deletes)
	assert.Equal(t, 0, fx.rec.Count(host.OpCreate)+fx.rec.Count(host.OpCreateText))
	assert.Equal(t, `<ul><li>B</li><li class="y">A2</li></ul>`, fx.main.InnerString())
}

func TestRender_ReorderMovesFallenBehind(t *testing.T) {
	tests := []struct {
		name      string
		from, to  []string
		wantMoved []string
	}{
		{
			name:      "rotate right",
			from:      []string{"a", "b", "c"},
			to:        []string{"c", "a", "b"},
			wantMoved: []string{"/#0/a", "/#0/b"},
		},
		{
			name:      "rotate left",
			from:      []string{"a", "b", "c"},
			to:        []string{"b", "c", "a"},
			wantMoved: []string{"/#0/a"},
		},
		{
			name:      "pairwise swap",
			from:      []string{"a", "b", "c", "d"},
			to:        []string{"b", "a", "d", "c"},
			wantMoved: []string{"/#0/a", "/#0/c"},
		},
		{
			name:      "reverse",
			from:      []string{"a", "b", "c", "d"},
			to:        []string{"d", "c", "b", "a"},
			wantMoved: []string{"/#0/c", "/#0/b", "/#0/a"},
		},
		{
			name: "unchanged",
			from: []string{"a", "b", "c"},
			to:   []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.render(t, letters(tt.from...))

			rep := fx.render(t, letters(tt.to...))

			assert.Zero(t, rep.Adds)
			assert.Zero(t, rep.Deletes)
			assert.Zero(t, rep.Updates)
			assert.Equal(t, tt.wantMoved, rep.Paths(OpMove))
			assert.Equal(t, len(tt.wantMoved), fx.rec.Count(host.OpInsert))

			want := letters(tt.to...)
			fresh := host.NewMemory()
			target := fresh.NewRoot("div")
			_, err := NewRoot(fresh).Render(want, target)
			require.NoError(t, err)
			assert.Equal(t, target.InnerString(), fx.main.InnerString())
		})
	}
}

func TestRender_TypeChangeRecreates(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, list(item("x", "one")))
	p := path(element.Position(0), element.Explicit("x"))
	old := handleAt(t, fx.root, p).(*host.Node)

	rep := fx.render(t, element.Build("ul", nil,
		element.Keyed("x", "p", nil, element.Text("one")),
	))

	assert.NotSame(t, old, handleAt(t, fx.root, p))
	assert.True(t, old.Released())
	assert.Zero(t, rep.Updates)
	assert.Equal(t, []EffectRecord{
		{Op: OpDelete, Path: "/#0/x", Kind: "li"},
		{Op: OpAdd, Path: "/#0/x", Kind: "p"},
		{Op: OpAdd, Path: "/#0/x/#0", Kind: element.TextKind},
	}, rep.Effects)
	assert.Equal(t, 1, fx.rec.Count(host.OpRemove))
	assert.Equal(t, "<ul><p>one</p></ul>", fx.main.InnerString())
}

func TestRender_DeletionRemovesSubtreeRootOnce(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, list(
		item("keep", "k"),
		element.Keyed("gone", "li", nil,
			element.Build("span", nil, element.Text("deep")),
			element.Build("span", nil, element.Text("deeper")),
		),
	))

	rep := fx.render(t, list(item("keep", "k")))

	assert.Equal(t, 1, rep.Deletes)
	assert.Equal(t, []string{"/#0/gone"}, rep.Paths(OpDelete))
	assert.Equal(t, 1, fx.rec.Count(host.OpRemove))
	assert.Equal(t, "<ul><li>k</li></ul>", fx.main.InnerString())

	ul := handleAt(t, fx.root, path(element.Position(0)))
	removed := fx.rec.Ops()[0]
	assert.Equal(t, host.OpRemove, removed.Kind)
	assert.Equal(t, host.LabelOf(ul), removed.Parent)
}

func TestRender_KeyedListScenario(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, list(item(1, "Item 1"), item(2, "Item 2"), item(3, "Item 3")))
	h2 := handleAt(t, fx.root, path(element.Position(0), element.Explicit("2")))
	h3 := handleAt(t, fx.root, path(element.Position(0), element.Explicit("3")))

	rep := fx.render(t, list(item(2, "Item 2"), item(4, "Item 4"), item(3, "Item 3"), item(0, "Item 0")))

	want := []EffectRecord{
		{Op: OpDelete, Path: "/#0/1", Kind: "li"},
		{Op: OpAdd, Path: "/#0/4", Kind: "li"},
		{Op: OpAdd, Path: "/#0/4/#0", Kind: element.TextKind},
		{Op: OpAdd, Path: "/#0/0", Kind: "li"},
		{Op: OpAdd, Path: "/#0/0/#0", Kind: element.TextKind},
	}
	if diff := cmp.Diff(want, rep.Effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, rep.Moves, "2 and 3 keep their relative order")
	assert.Same(t, h2, handleAt(t, fx.root, path(element.Position(0), element.Explicit("2"))))
	assert.Same(t, h3, handleAt(t, fx.root, path(element.Position(0), element.Explicit("3"))))
	assert.Equal(t,
		"<ul><li>Item 2</li><li>Item 4</li><li>Item 3</li><li>Item 0</li></ul>",
		fx.main.InnerString())
}

func TestRender_PropertyUpdates(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, element.Build("div", ir.Props(
		ir.O("id", ir.IRString("main")),
		ir.O("title", ir.IRString("t")),
	), element.Text("old")))

	rep := fx.render(t, element.Build("div", ir.Props(
		ir.O("id", ir.IRString("main")),
		ir.O("hidden", ir.IRBool(true)),
	), element.Text("new")))

	assert.Equal(t, []EffectRecord{
		{Op: OpUpdate, Path: "/#0", Kind: "div"},
		{Op: OpUpdate, Path: "/#0/#0", Kind: element.TextKind},
	}, rep.Effects)

	ops := fx.rec.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, ir.IRObject{"title": ir.IRNull{}, "hidden": ir.IRBool(true)}, ops[0].Props,
		"patch carries only changed keys, removals as null")
	assert.Equal(t, `<div hidden id="main">new</div>`, fx.main.InnerString())
}

func TestRender_TargetSwapRemounts(t *testing.T) {
	fx := newFixture(t)
	other := fx.mem.NewRoot("section")
	tree := func() *element.Descriptor { return letters("a", "b") }

	first := fx.render(t, tree())
	rep, err := fx.root.Render(tree(), other)
	require.NoError(t, err)

	assert.True(t, rep.Remount)
	assert.Equal(t, "s2", rep.SessionID)
	assert.Equal(t, first.Adds, rep.Adds)
	for _, e := range rep.Effects {
		assert.Equal(t, OpAdd, e.Op)
	}
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", other.InnerString())
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", fx.main.InnerString(), "first target is left alone")
	assert.Same(t, other, fx.root.Target())
}

func TestRender_NilDescriptorClearsTarget(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, letters("a"))

	rep := fx.render(t, nil)

	assert.Equal(t, []string{"/#0"}, rep.Paths(OpDelete))
	assert.Empty(t, fx.main.InnerString())
	assert.Nil(t, fx.root.Current().Child())
}

func TestRender_ExplicitRootKey(t *testing.T) {
	fx := newFixture(t)
	rep := fx.render(t, element.Keyed("app", "main", nil))
	assert.Equal(t, []string{"/app"}, rep.Paths(OpAdd))

	rep = fx.render(t, element.Keyed("other", "main", nil))
	assert.Equal(t, []string{"/app"}, rep.Paths(OpDelete))
	assert.Equal(t, []string{"/other"}, rep.Paths(OpAdd))
}

func TestRender_DuplicateKeyLeavesTreeIntact(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, letters("a", "b"))
	before := fx.root.Current()
	markup := fx.main.InnerString()
	fx.rec.Drain()

	_, err := fx.root.Render(letters("a", "b", "a"), fx.main)

	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "/#0", re.Path)
	var dup *element.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, element.Explicit("a"), dup.Key)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 2, dup.Second)

	assert.Empty(t, fx.rec.Ops())
	assert.Same(t, before, fx.root.Current())
	assert.Equal(t, markup, fx.main.InnerString())
	assert.NoError(t, fx.root.Torn())

	rep := fx.render(t, letters("b", "a"))
	assert.Equal(t, []string{"/#0/a"}, rep.Paths(OpMove))
}

func TestRender_UnsupportedKindTearsTarget(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, letters("a"))

	_, err := fx.root.Render(list(item("a", "a"), element.Keyed("b", "blink", nil)), fx.main)

	require.Error(t, err)
	assert.True(t, IsUnsupportedKind(err))
	assert.True(t, errors.Is(err, host.ErrUnsupportedKind))
	assert.Equal(t, ErrCodeUnsupportedKind, CodeOf(err))
	assert.Contains(t, err.Error(), "/#0/b")
	assert.Nil(t, fx.root.Current())

	_, err = fx.root.Render(letters("a"), fx.main)
	assert.True(t, IsTornTarget(err))
	assert.True(t, IsUnsupportedKind(errors.Unwrap(err)), "torn error wraps the original failure")

	fx.root.Reset(fx.main)
	assert.NoError(t, fx.root.Torn())
	fresh := fx.mem.NewRoot("div")
	rep, err := fx.root.Render(letters("a"), fresh)
	require.NoError(t, err)
	assert.True(t, rep.Remount)
}

func TestRender_TornStateIsPerTarget(t *testing.T) {
	fx := newFixture(t)
	other := fx.mem.NewRoot("div")
	fx.render(t, letters("a"))

	_, err := fx.root.Render(list(item("a", "a"), element.Keyed("b", "blink", nil)), fx.main)
	require.True(t, IsUnsupportedKind(err))

	rep, err := fx.root.Render(letters("a"), other)
	require.NoError(t, err, "a different target can still be mounted")
	assert.True(t, rep.Remount)
	assert.NoError(t, fx.root.Torn())

	markup := fx.main.InnerString()
	_, err = fx.root.Render(letters("a"), fx.main)
	assert.True(t, IsTornTarget(err), "mounting elsewhere does not clear a torn target")
	assert.Error(t, fx.root.TornOf(fx.main))
	assert.NoError(t, fx.root.TornOf(other))
	assert.Equal(t, markup, fx.main.InnerString())
}

func TestRender_AlternatingTargetsStayIncremental(t *testing.T) {
	fx := newFixture(t)
	other := fx.mem.NewRoot("section")

	first := fx.render(t, letters("a"))
	_, err := fx.root.Render(letters("a"), other)
	require.NoError(t, err)
	mainTree := fx.root.CurrentOf(fx.main)

	fx.rec.Drain()
	rep, err := fx.root.Render(letters("a"), fx.main)
	require.NoError(t, err)

	assert.False(t, rep.Remount)
	assert.Equal(t, first.SessionID, rep.SessionID)
	assert.True(t, rep.Empty())
	assert.Empty(t, fx.rec.Ops())
	assert.Equal(t, "<ul><li>a</li></ul>", fx.main.InnerString())
	assert.Equal(t, "<ul><li>a</li></ul>", other.InnerString())
	assert.Same(t, mainTree.Child().Handle(), fx.root.Current().Child().Handle())

	rep, err = fx.root.Render(letters("b", "a"), fx.main)
	require.NoError(t, err)
	assert.Equal(t, []string{"/#0/b", "/#0/b/#0"}, rep.Paths(OpAdd))
	assert.Equal(t, "<ul><li>b</li><li>a</li></ul>", fx.main.InnerString())
	assert.Equal(t, "<ul><li>a</li></ul>", other.InnerString())
}

func TestRender_NestedEffectPaths(t *testing.T) {
	fx := newFixture(t)
	nest := func(items ...*element.Descriptor) *element.Descriptor {
		return element.Keyed("app", "main", nil, element.Keyed("s", "section", nil, list(items...)))
	}
	fx.render(t, nest(item("a", "a"), item("b", "b"), item("c", "c")))

	rep := fx.render(t, nest(item("c", "c"), item("a", "A"), item("b", "b")))
	want := []EffectRecord{
		{Op: OpMove, Path: "/app/s/#0/a", Kind: "li"},
		{Op: OpUpdate, Path: "/app/s/#0/a/#0", Kind: element.TextKind},
		{Op: OpMove, Path: "/app/s/#0/b", Kind: "li"},
	}
	if diff := cmp.Diff(want, rep.Effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}

	rep = fx.render(t, nest(item("c", "c"), item("a", "A")))
	assert.Equal(t, []string{"/app/s/#0/b"}, rep.Paths(OpDelete))

	f, ok := fx.root.Current().Find(path(element.Explicit("app"), element.Explicit("s")))
	require.True(t, ok)
	assert.Equal(t, "/app/s", f.LogValue().String())

	_, err := fx.root.Render(nest(item("x", "1"), item("x", "2")), fx.main)
	require.True(t, IsDuplicateKey(err))
	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "/app/s/#0", re.Path)
	var dup *element.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "/app/s/#0", dup.Parent.String())
}

func TestRender_InvalidTarget(t *testing.T) {
	fx := newFixture(t)
	text, err := fx.mem.CreateTextNode("x")
	require.NoError(t, err)

	tests := []struct {
		name   string
		target host.Handle
	}{
		{"nil", nil},
		{"text node", text},
		{"foreign handle", host.NewMemory().NewRoot("div")},
		{"not a node", "div"},
		{"not comparable", []string{"div"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.root.Render(letters("a"), tt.target)
			assert.True(t, IsInvalidTarget(err), "got %v", err)
			assert.Nil(t, fx.root.Current())
		})
	}
}

func TestRender_ObserverSeesCommits(t *testing.T) {
	var seen []Commit
	fx := newFixture(t, WithObserver(ObserverFunc(func(c Commit) error {
		seen = append(seen, c)
		return nil
	})))

	d := letters("a")
	fx.render(t, d)
	fx.render(t, letters("b"))

	require.Len(t, seen, 2)
	assert.Equal(t, "s1", seen[0].SessionID)
	assert.Equal(t, int64(1), seen[0].Seq)
	assert.Same(t, d, seen[0].Tree)
	assert.Equal(t, host.LabelOf(fx.main), seen[0].Target)
	assert.True(t, seen[0].Report.Remount)
	assert.Equal(t, int64(2), seen[1].Seq)
	assert.False(t, seen[1].Report.Remount)
}

func TestRender_ObserverErrorKeepsRender(t *testing.T) {
	boom := errors.New("journal full")
	fx := newFixture(t, WithObserver(ObserverFunc(func(Commit) error { return boom })))

	rep, err := fx.root.Render(letters("a"), fx.main)

	require.ErrorIs(t, err, boom)
	require.NotNil(t, rep)
	assert.Equal(t, 3, rep.Adds)
	assert.NotNil(t, fx.root.Current())
}

func TestRender_WithClockResumesSeq(t *testing.T) {
	fx := newFixture(t, WithClock(NewClockAt(41)))
	rep := fx.render(t, letters("a"))
	assert.Equal(t, int64(42), rep.Seq)
}

func TestUnmount(t *testing.T) {
	fx := newFixture(t)
	fx.render(t, letters("a", "b"))
	fx.rec.Drain()

	require.NoError(t, fx.root.Unmount(fx.main))

	assert.Empty(t, fx.main.InnerString())
	assert.Nil(t, fx.root.Current())
	assert.Empty(t, fx.root.SessionID())
	assert.Equal(t, 1, fx.rec.Count(host.OpRemove))

	rep := fx.render(t, letters("a"))
	assert.True(t, rep.Remount)
	assert.Equal(t, "s2", rep.SessionID)

	assert.NoError(t, NewRoot(fx.mem).Unmount(fx.main), "unmounting an empty root is a no-op")
}

func TestRender_DeepTreeIsIterative(t *testing.T) {
	fx := newFixture(t)
	const depth = 1000

	build := func(leaf string) *element.Descriptor {
		d := element.BuildText(nil, leaf)
		for i := 0; i < depth; i++ {
			d = element.Build("div", nil, d)
		}
		return d
	}

	rep := fx.render(t, build("x"))
	assert.Equal(t, depth+1, rep.Adds)

	rep = fx.render(t, build("y"))
	require.Len(t, rep.Effects, 1)
	assert.Equal(t, OpUpdate, rep.Effects[0].Op)
	assert.Equal(t, depth+2, fx.root.Current().Count())
}
