package engine

import (
	"sync"

	"github.com/google/uuid"
)

// SessionGenerator produces mount session ids.
// A new session starts every time a Root fully remounts.
type SessionGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// UUIDv7 embeds a timestamp in its leading bits, so journaled sessions sort
// by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined session ids, for tests and replay.
//
// Thread-safety: FixedGenerator is safe for concurrent use.
type FixedGenerator struct {
	mu    sync.Mutex
	ids   []string
	idx   int
	reuse bool
}

// NewFixedGenerator returns ids in order and panics once they run out.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewRepeatingGenerator always returns id.
func NewRepeatingGenerator(id string) *FixedGenerator {
	return &FixedGenerator{ids: []string{id}, reuse: true}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reuse {
		return g.ids[0]
	}
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all session ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
