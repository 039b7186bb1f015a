package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/engine"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/store"
	"github.com/roach88/flash/internal/testutil"
)

// Harness is the test execution engine.
// It renders scenario frames through one engine.Root per target label over a
// recorded memory host, journaling every commit.
type Harness struct {
	store    *store.Store
	memory   *host.Memory
	rec      *host.Recorder
	rootOpts []engine.RootOption
	roots    map[string]*engine.Root
	targets  map[string]*host.Node
	order    []string
	logger   *slog.Logger

	// last successful render, for the idempotent assertion
	last      *element.Descriptor
	lastLabel string
	rendered  bool
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh memory host and in-memory database.
// Sequential session ids keep traces reproducible.
//
// Execution flow:
//  1. Create fresh in-memory database and memory host
//  2. Render each frame and check its expect clause
//  3. Evaluate assertions
//  4. Return result with pass/fail, trace, and errors
//
// An error is returned only when the harness itself fails, e.g. the journal
// could not be written.
//
// The engine logs through the default slog logger, which is discarded for
// the duration of the run and restored afterwards.
func Run(scenario *Scenario) (*Result, error) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	prev := slog.Default()
	slog.SetDefault(discard)
	defer slog.SetDefault(prev)

	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	var memOpts []host.MemoryOption
	if scenario.AnyTag {
		memOpts = append(memOpts, host.WithAnyTag())
	}
	mem := host.NewMemory(memOpts...)
	rec := host.NewRecorder(mem)

	h := &Harness{
		store:  st,
		memory: mem,
		rec:    rec,
		// Shared by every per-target Root so seq and session ids stay global.
		rootOpts: []engine.RootOption{
			engine.WithClock(engine.NewClock()),
			engine.WithSessionGenerator(testutil.NewSequentialSessions(scenario.SessionPrefix)),
			engine.WithObserver(store.NewJournal(ctx, st)),
		},
		roots:   make(map[string]*engine.Root),
		targets: make(map[string]*host.Node),
		logger:  discard,
	}

	result := NewResult()
	for i, f := range scenario.Frames {
		if err := h.renderFrame(i, f, result); err != nil {
			return nil, fmt.Errorf("failed to render frame %d: %w", i, err)
		}
	}

	for _, label := range h.order {
		result.Final[label] = h.targets[label].InnerString()
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Harness: h,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// target returns the container for label and the Root that renders into it,
// creating both on first use.
func (h *Harness) target(label string) (*host.Node, *engine.Root) {
	if n, ok := h.targets[label]; ok {
		return n, h.roots[label]
	}
	n := h.memory.NewRoot("div")
	r := engine.NewRoot(h.rec, h.rootOpts...)
	h.targets[label] = n
	h.roots[label] = r
	h.order = append(h.order, label)
	return n, r
}

// renderFrame renders one frame and records its trace event.
// Render errors are scenario outcomes; only journal failures abort the run.
func (h *Harness) renderFrame(i int, f Frame, result *Result) error {
	label := f.TargetLabel()
	target, root := h.target(label)

	h.rec.Drain()
	rep, err := root.Render(f.desc, target)

	ev := TraceEvent{
		Frame:   i,
		Target:  label,
		Effects: []engine.EffectRecord{},
		handles: map[string]string{},
	}
	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			return err
		}
		ev.Error = string(code)
		h.logger.Info("frame failed", "frame", i, "target", label, "error", err)
	} else {
		ev.Seq = rep.Seq
		ev.Session = rep.SessionID
		ev.Remount = rep.Remount
		if len(rep.Effects) > 0 {
			ev.Effects = rep.Effects
		}
		ev.handles = snapshotHandles(root.Current())
		h.last, h.lastLabel, h.rendered = f.desc, label, true
		h.logger.Info("frame rendered",
			"frame", i,
			"target", label,
			"seq", rep.Seq,
			"effects", len(rep.Effects),
		)
	}
	ev.HTML = target.InnerString()
	ev.Removes = h.rec.Count(host.OpRemove)

	for _, msg := range checkExpect(i, f.Expect, ev, rep, err) {
		result.AddError(msg)
	}
	result.Trace = append(result.Trace, ev)
	return nil
}

// snapshotHandles maps every fiber path under root to its host label.
func snapshotHandles(root *engine.Fiber) map[string]string {
	out := map[string]string{}
	if root == nil {
		return out
	}
	stack := []*engine.Fiber{root}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out[f.Path().String()] = host.LabelOf(f.Handle())
		stack = append(stack, f.Children()...)
	}
	return out
}

// checkExpect compares one frame's outcome with its expect clause.
func checkExpect(i int, e *Expect, ev TraceEvent, rep *engine.Report, renderErr error) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("frame %d: ", i)+fmt.Sprintf(format, args...))
	}

	if e == nil || e.Error == "" {
		if renderErr != nil {
			fail("unexpected error: %v", renderErr)
			return errs
		}
	} else if ev.Error != e.Error {
		if renderErr != nil {
			fail("expected error %s, got %v", e.Error, renderErr)
		} else {
			fail("expected error %s, render succeeded", e.Error)
		}
		return errs
	}
	if e == nil {
		return errs
	}

	if rep != nil {
		counts := []struct {
			name string
			want *int
			got  int
		}{
			{"adds", e.Adds, rep.Adds},
			{"updates", e.Updates, rep.Updates},
			{"moves", e.Moves, rep.Moves},
			{"deletes", e.Deletes, rep.Deletes},
		}
		for _, c := range counts {
			if c.want != nil && *c.want != c.got {
				fail("expected %d %s, got %d", *c.want, c.name, c.got)
			}
		}

		lists := []struct {
			name string
			want []string
			op   engine.EffectOp
		}{
			{"added", e.Added, engine.OpAdd},
			{"moved", e.Moved, engine.OpMove},
			{"deleted", e.Deleted, engine.OpDelete},
		}
		for _, l := range lists {
			if l.want == nil {
				continue
			}
			if got := rep.Paths(l.op); !slices.Equal(l.want, got) {
				fail("expected %s %v, got %v", l.name, l.want, got)
			}
		}
	}

	if e.HTML != nil && *e.HTML != ev.HTML {
		fail("expected html %q, got %q", *e.HTML, ev.HTML)
	}
	return errs
}

// sessionIDs returns the journaled session ids in open order.
func (h *Harness) sessionIDs(ctx context.Context) ([]string, error) {
	sessions, err := h.store.ReadSessions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids, nil
}
