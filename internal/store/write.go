package store

import (
	"context"
	"fmt"

	"github.com/roach88/flash/internal/ir"
)

// Session is one mount of a descriptor tree into a target.
// A session opens at the first render after a remount.
type Session struct {
	ID            string
	Target        string // host label of the mount target
	OpenedSeq     int64
	EngineVersion string
	TreeVersion   string
}

// Render is one committed render within a session.
type Render struct {
	SessionID string
	Seq       int64
	TreeHash  string
	Tree      ir.IRObject // element.ToIR encoding; empty for a nil tree
	Adds      int
	Updates   int
	Moves     int
	Deletes   int
	Effects   []Effect
}

// Effect is one applied visual change, in commit order.
type Effect struct {
	Idx  int
	Op   string
	Path string
	Kind string
}

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, target, opened_seq, engine_version, tree_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Target,
		sess.OpenedSeq,
		sess.EngineVersion,
		sess.TreeVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteRender inserts a render and its effects in one transaction.
// Returns inserted=false if (session_id, seq) was already journaled; the
// existing record is left unchanged.
//
// The session must exist (foreign key constraint). If TreeHash is empty it
// is computed from Tree.
func (s *Store) WriteRender(ctx context.Context, r Render) (inserted bool, err error) {
	treeJSON, err := marshalTree(r.Tree)
	if err != nil {
		return false, fmt.Errorf("write render: %w", err)
	}
	hash := r.TreeHash
	if hash == "" {
		if hash, err = ir.TreeHash(r.Tree); err != nil {
			return false, fmt.Errorf("write render: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write render: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO renders
		(session_id, seq, tree_hash, tree, adds, updates, moves, deletes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		r.SessionID,
		r.Seq,
		hash,
		treeJSON,
		r.Adds,
		r.Updates,
		r.Moves,
		r.Deletes,
	)
	if err != nil {
		return false, fmt.Errorf("write render: insert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write render: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for i, e := range r.Effects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO effects (session_id, seq, idx, op, path, kind)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.SessionID, r.Seq, i, e.Op, e.Path, e.Kind); err != nil {
			return false, fmt.Errorf("write render: effect %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write render: commit: %w", err)
	}
	return true, nil
}
