package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping each successful commit.
//
// Seq values order the render journal without consulting wall time.
//
// Thread-safety: Clock is safe for concurrent use. A Root only calls Next from
// inside Render, which is itself not reentrant.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
// Used to keep numbering a journal that already holds renders up to start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
