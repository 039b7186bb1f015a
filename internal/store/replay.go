package store

import (
	"context"
	"fmt"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/engine"
)

// Frame is one journaled render decoded for replay.
type Frame struct {
	Seq     int64
	Tree    *element.Descriptor // nil when the render cleared the target
	Effects []Effect
}

// ReplaySession decodes a session's renders in seq order.
//
// Feeding the frames to a fresh engine.Root over an empty target must
// reproduce the journaled effects exactly; MatchEffects checks that.
func (s *Store) ReplaySession(ctx context.Context, sessionID string) ([]Frame, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	renders, err := s.ReadRenders(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	frames := make([]Frame, 0, len(renders))
	for _, r := range renders {
		f := Frame{Seq: r.Seq, Effects: r.Effects}
		if len(r.Tree) > 0 {
			d, err := element.FromIR(r.Tree)
			if err != nil {
				return nil, fmt.Errorf("replay seq=%d: %w", r.Seq, err)
			}
			f.Tree = d
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// MatchEffects compares journaled effects with those of a reproduced render.
// Returns nil when both lists agree entry by entry.
func MatchEffects(want []Effect, got []engine.EffectRecord) error {
	if len(want) != len(got) {
		return fmt.Errorf("effect count: journaled %d, reproduced %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.Op != string(g.Op) || w.Path != g.Path || w.Kind != g.Kind {
			return fmt.Errorf("effect %d: journaled %s %s (%s), reproduced %s %s (%s)",
				i, w.Op, w.Path, w.Kind, g.Op, g.Path, g.Kind)
		}
	}
	return nil
}
