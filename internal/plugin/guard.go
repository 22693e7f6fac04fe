package plugin

import "github.com/roach88/recordsim/internal/fault"

// DefaultMaxDepth is the depth ceiling used when none is configured.
const DefaultMaxDepth = 8

// DepthGuard rejects invocations nested deeper than its ceiling.
// A ceiling of zero or less disables the check.
type DepthGuard struct {
	max int
}

// NewDepthGuard creates a guard with the given ceiling.
func NewDepthGuard(max int) *DepthGuard {
	return &DepthGuard{max: max}
}

// Check returns InfiniteLoopGuard when depth exceeds the ceiling.
func (g *DepthGuard) Check(depth int) error {
	if g == nil || g.max <= 0 || depth <= g.max {
		return nil
	}
	return fault.NewInfiniteLoop(depth, g.max)
}

// Max returns the ceiling.
func (g *DepthGuard) Max() int {
	return g.max
}
