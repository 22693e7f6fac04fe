package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// SequentialIDs generates predictable uuids: 00000000-0000-0000-0000-000000000001,
// then ...0002 and so on. Optional prefix bytes let several generators in one
// test produce disjoint ranges.
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	n      uint64
	prefix uint64
}

// NewSequentialIDs creates a generator whose first id ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewSequentialIDsWithPrefix creates a generator whose ids carry prefix in
// the upper eight bytes.
func NewSequentialIDsWithPrefix(prefix uint64) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next id.
func (g *SequentialIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return ID(g.prefix, g.n)
}

// ID builds the uuid SequentialIDs would produce for (prefix, n).
func ID(prefix, n uint64) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[:8], prefix)
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}
