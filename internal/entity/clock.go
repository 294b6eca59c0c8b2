package entity

import "sync/atomic"

// Clock stamps events with a monotonic sequence number.
type Clock interface {
	Next() int64
	Current() int64
}

// LogicalClock is the default Clock: a strictly increasing counter.
//
// Events are ordered by seq, never by wall-clock time, so a replayed
// session produces the same order.
type LogicalClock struct {
	seq atomic.Int64
}

// NewLogicalClock creates a clock whose first Next returns 1.
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// NewLogicalClockAt creates a clock resuming after start. Used when a
// session is reloaded from the store.
func NewLogicalClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
