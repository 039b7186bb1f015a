// Package store provides the SQLite render journal.
//
// The journal is append-only:
//   - Sessions: one row per mount of a tree into a target
//   - Renders: one row per committed render, holding the canonical tree
//   - Effects: the ordered visual changes each render applied
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER from the engine clock, NEVER timestamps
//   - Enables deterministic replay regardless of wall time
//
// Idempotent writes:
//   - PRIMARY KEY(session_id, seq) with ON CONFLICT DO NOTHING
//   - A render and its effects are written in one transaction
//
// Deterministic reads:
//   - Renders ORDER BY seq ASC, effects ORDER BY seq ASC, idx ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Trees are stored as RFC 8785 canonical JSON and identified by
// ir.TreeHash, so two renders of the same UI share a tree_hash.
package store
