package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/flash/internal/engine"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		if event.Error != "" {
			fmt.Fprintf(&buf, "  [%d] %s: %s\n", event.Frame, event.Target, event.Error)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s seq=%d effects=%d %s\n",
			event.Frame, event.Target, event.Seq, len(event.Effects), event.HTML)
	}

	return buf.String()
}

// AssertionContext carries the live state assertions may need.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Harness *Harness
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertIdempotent:
		return assertIdempotent(result.Trace, actx)
	case AssertHandlePreserved:
		return assertHandlePreserved(result, a)
	case AssertRemoveCount:
		return assertRemoveCount(result.Trace, a)
	case AssertFinalHTML:
		return assertFinalHTML(result, a)
	case AssertReplay:
		return assertReplay(result.Trace, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertIdempotent re-renders the last committed frame and requires that no
// effect and no host call results.
func assertIdempotent(trace []TraceEvent, actx *AssertionContext) error {
	h := actx.Harness
	if h == nil || !h.rendered {
		return &AssertionError{
			Type:     AssertIdempotent,
			Expected: "at least one committed frame",
			Actual:   "no frame committed",
			Trace:    trace,
		}
	}

	h.rec.Drain()
	target, root := h.target(h.lastLabel)
	rep, err := root.Render(h.last, target)
	if err != nil {
		return &AssertionError{
			Type:     AssertIdempotent,
			Expected: "re-render succeeds",
			Actual:   err.Error(),
			Trace:    trace,
		}
	}
	ops := h.rec.Drain()
	if !rep.Empty() || len(ops) > 0 {
		return &AssertionError{
			Type:     AssertIdempotent,
			Expected: "no effects and no host calls",
			Actual:   fmt.Sprintf("%d effects, %d host calls", len(rep.Effects), len(ops)),
			Trace:    trace,
		}
	}
	return nil
}

// assertHandlePreserved checks that the node at a.Path is the same host node
// after frames a.From and a.To.
func assertHandlePreserved(result *Result, a Assertion) error {
	from := result.Handle(a.From, a.Path)
	to := result.Handle(a.To, a.Path)
	if from == "" || to == "" {
		return &AssertionError{
			Type:     AssertHandlePreserved,
			Expected: fmt.Sprintf("%s mounted after frames %d and %d", a.Path, a.From, a.To),
			Actual:   fmt.Sprintf("frame %d: %q, frame %d: %q", a.From, from, a.To, to),
			Trace:    result.Trace,
		}
	}
	if from != to {
		return &AssertionError{
			Type:     AssertHandlePreserved,
			Expected: fmt.Sprintf("%s keeps handle %s", a.Path, from),
			Actual:   fmt.Sprintf("handle changed to %s", to),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertRemoveCount checks the number of RemoveChild calls made by one frame.
func assertRemoveCount(trace []TraceEvent, a Assertion) error {
	if a.Frame < 0 || a.Frame >= len(trace) {
		return fmt.Errorf("frame %d not in trace", a.Frame)
	}
	if got := trace[a.Frame].Removes; got != a.Count {
		return &AssertionError{
			Type:     AssertRemoveCount,
			Expected: fmt.Sprintf("%d removals in frame %d", a.Count, a.Frame),
			Actual:   fmt.Sprintf("%d removals", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalHTML compares a target's final markup.
func assertFinalHTML(result *Result, a Assertion) error {
	label := a.Target
	if label == "" {
		label = DefaultTarget
	}
	got, ok := result.Final[label]
	if !ok {
		return fmt.Errorf("target %q was never rendered", label)
	}
	if got != a.HTML {
		return &AssertionError{
			Type:     AssertFinalHTML,
			Expected: a.HTML,
			Actual:   got,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertReplay feeds every journaled session to a fresh root over a fresh
// memory host and requires the reproduced effects to match the journal.
func assertReplay(trace []TraceEvent, actx *AssertionContext) error {
	ids, err := actx.Harness.sessionIDs(actx.Ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return &AssertionError{
			Type:     AssertReplay,
			Expected: "at least one journaled session",
			Actual:   "journal is empty",
			Trace:    trace,
		}
	}

	for _, id := range ids {
		frames, err := actx.Store.ReplaySession(actx.Ctx, id)
		if err != nil {
			return err
		}
		mem := host.NewMemory(host.WithAnyTag())
		target := mem.NewRoot("div")
		root := engine.NewRoot(mem)
		for _, f := range frames {
			rep, err := root.Render(f.Tree, target)
			if err != nil {
				return fmt.Errorf("session %s seq=%d: %w", id, f.Seq, err)
			}
			if err := store.MatchEffects(f.Effects, rep.Effects); err != nil {
				return &AssertionError{
					Type:     AssertReplay,
					Expected: fmt.Sprintf("session %s seq=%d replays identically", id, f.Seq),
					Actual:   err.Error(),
					Trace:    trace,
				}
			}
		}
	}
	return nil
}
