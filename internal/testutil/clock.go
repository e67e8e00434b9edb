package testutil

import "sync"

// SequenceClock is a resettable logical clock for compilation sequence
// numbers. The first call to Next returns 1.
//
// Safe for concurrent use.
type SequenceClock struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceClock returns a clock starting at 0.
func NewSequenceClock() *SequenceClock {
	return &SequenceClock{}
}

// Next increments and returns the sequence number.
func (c *SequenceClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the sequence number without incrementing.
func (c *SequenceClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so the same scenario can be replayed with
// identical sequence numbers.
func (c *SequenceClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// FixedIDs returns the same compilation id every time, so golden output
// does not depend on random UUIDs.
type FixedIDs struct {
	id string
}

// NewFixedIDs returns a generator for id ("test-compilation" if empty).
func NewFixedIDs(id string) *FixedIDs {
	if id == "" {
		id = "test-compilation"
	}
	return &FixedIDs{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDs) Generate() string { return g.id }
