package store

import (
	"context"
	"fmt"

	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/engine"
	"github.com/roach88/flash/internal/ir"
)

// Journal records every commit of an engine.Root into a Store.
//
// A remount opens a new session row before its first render is written.
type Journal struct {
	ctx   context.Context
	store *Store
}

// NewJournal returns an engine.Observer writing to s. ctx bounds every write.
func NewJournal(ctx context.Context, s *Store) *Journal {
	return &Journal{ctx: ctx, store: s}
}

// Committed implements engine.Observer.
func (j *Journal) Committed(c engine.Commit) error {
	if c.Report.Remount {
		err := j.store.WriteSession(j.ctx, Session{
			ID:            c.SessionID,
			Target:        c.Target,
			OpenedSeq:     c.Seq,
			EngineVersion: ir.EngineVersion,
			TreeVersion:   ir.TreeVersion,
		})
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}

	tree := ir.IRObject{}
	if c.Tree != nil {
		tree = element.ToIR(c.Tree)
	}
	hash, err := ir.TreeHash(tree)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	effects := make([]Effect, len(c.Report.Effects))
	for i, e := range c.Report.Effects {
		effects[i] = Effect{Idx: i, Op: string(e.Op), Path: e.Path, Kind: e.Kind}
	}

	_, err = j.store.WriteRender(j.ctx, Render{
		SessionID: c.SessionID,
		Seq:       c.Seq,
		TreeHash:  hash,
		Tree:      tree,
		Adds:      c.Report.Adds,
		Updates:   c.Report.Updates,
		Moves:     c.Report.Moves,
		Deletes:   c.Report.Deletes,
		Effects:   effects,
	})
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
