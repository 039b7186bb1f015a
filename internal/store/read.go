package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadSessions returns every journaled session.
// Results are ordered deterministically: ORDER BY opened_seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, opened_seq, engine_version, tree_version
		FROM sessions
		ORDER BY opened_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Target, &sess.OpenedSeq, &sess.EngineVersion, &sess.TreeVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns one session, or an error wrapping ErrNotFound.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, target, opened_seq, engine_version, tree_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Target, &sess.OpenedSeq, &sess.EngineVersion, &sess.TreeVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ReadRenders returns the renders of a session with their effects.
// Ordered by seq ASC; effects within a render by idx ASC.
//
// Returns an empty slice (not nil) if the session has no renders.
func (s *Store) ReadRenders(ctx context.Context, sessionID string) ([]Render, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, tree_hash, tree, adds, updates, moves, deletes
		FROM renders
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer rows.Close()

	renders := []Render{}
	index := make(map[int64]int)
	for rows.Next() {
		var r Render
		var tree string
		if err := rows.Scan(&r.SessionID, &r.Seq, &r.TreeHash, &tree, &r.Adds, &r.Updates, &r.Moves, &r.Deletes); err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		if r.Tree, err = unmarshalTree(tree); err != nil {
			return nil, fmt.Errorf("render seq=%d: %w", r.Seq, err)
		}
		r.Effects = []Effect{}
		index[r.Seq] = len(renders)
		renders = append(renders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renders: %w", err)
	}
	rows.Close()

	// One query for all effects of the session avoids N+1.
	effects, err := s.db.QueryContext(ctx, `
		SELECT seq, idx, op, path, kind
		FROM effects
		WHERE session_id = ?
		ORDER BY seq ASC, idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query effects: %w", err)
	}
	defer effects.Close()

	for effects.Next() {
		var seq int64
		var e Effect
		if err := effects.Scan(&seq, &e.Idx, &e.Op, &e.Path, &e.Kind); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		if i, ok := index[seq]; ok {
			renders[i].Effects = append(renders[i].Effects, e)
		}
	}
	if err := effects.Err(); err != nil {
		return nil, fmt.Errorf("iterate effects: %w", err)
	}
	return renders, nil
}

// ReadEffects returns the effects of one render ordered by idx ASC.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadEffects(ctx context.Context, sessionID string, seq int64) ([]Effect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, op, path, kind
		FROM effects
		WHERE session_id = ? AND seq = ?
		ORDER BY idx ASC
	`, sessionID, seq)
	if err != nil {
		return nil, fmt.Errorf("query effects: %w", err)
	}
	defer rows.Close()

	out := []Effect{}
	for rows.Next() {
		var e Effect
		if err := rows.Scan(&e.Idx, &e.Op, &e.Path, &e.Kind); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effects: %w", err)
	}
	return out, nil
}
