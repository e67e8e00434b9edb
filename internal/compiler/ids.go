package compiler

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces compilation ids.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 compilation ids.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock stamps compilations with a sequence number.
// Implemented by Counter and testutil.SequenceClock.
type Clock interface {
	Next() int64
}

// Counter is a monotonic logical clock. Safe for concurrent use.
type Counter struct {
	seq atomic.Int64
}

// NewCounterAt returns a counter whose next value is start+1. Used to
// continue numbering after the last archived plan.
func NewCounterAt(start int64) *Counter {
	c := &Counter{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Counter) Next() int64 {
	return c.seq.Add(1)
}
