package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock starts from.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a logical clock that also reports wall time.
// Each call to Now advances it by one second from Epoch, so house-keeping
// stamps in tests are reproducible and strictly increasing.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	base time.Time
}

// NewDeterministicClock creates a clock starting at Epoch.
// The first call to Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{base: Epoch}
}

// NewDeterministicClockAt creates a clock starting at base.
func NewDeterministicClockAt(base time.Time) *DeterministicClock {
	return &DeterministicClock{base: base.UTC()}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now advances the clock and returns base + seq seconds.
func (c *DeterministicClock) Now() time.Time {
	n := c.Next()
	return c.base.Add(time.Duration(n) * time.Second)
}

// Reset returns the clock to its base. The next call to Next returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
