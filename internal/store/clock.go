package store

import (
	"sync/atomic"
	"time"
)

// Sequence is a monotonic logical clock. Every insertion is stamped with
// the next value so enumeration order is deterministic and independent of
// wall-clock time.
type Sequence struct {
	seq atomic.Int64
}

// Next returns the next sequence number. The first call returns 1.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// Clock supplies wall-clock time for house-keeping stamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
