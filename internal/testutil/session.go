package testutil

import (
	"fmt"
	"sync"
)

// SequentialSessions generates session ids "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh SequentialSessions produces byte-identical
// traces. Unlike engine.FixedGenerator it never runs out.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialSessions struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialSessions creates a generator. An empty prefix means "session".
func NewSequentialSessions(prefix string) *SequentialSessions {
	if prefix == "" {
		prefix = "session"
	}
	return &SequentialSessions{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.SessionGenerator.
func (g *SequentialSessions) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialSessions) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
