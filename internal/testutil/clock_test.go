package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(3), clock.Next())
	assert.Equal(t, int64(3), clock.Current())
}

func TestDeterministicClock_Now(t *testing.T) {
	clock := NewDeterministicClock()

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, Epoch.Add(time.Second), first)
	assert.Equal(t, Epoch.Add(2*time.Second), second)

	base := time.Date(2030, 6, 1, 12, 0, 0, 0, time.FixedZone("x", 7200))
	other := NewDeterministicClockAt(base)
	assert.Equal(t, base.UTC().Add(time.Second), other.Now())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const workers = 50
	const calls = 100

	var wg sync.WaitGroup
	results := make([][]int64, workers)
	for i := 0; i < workers; i++ {
		results[i] = make([]int64, calls)
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				results[idx][j] = clock.Next()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, row := range results {
		for _, v := range row {
			require.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, workers*calls)
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs()
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", ids.NewID().String())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", ids.NewID().String())

	prefixed := NewSequentialIDsWithPrefix(0xab)
	assert.Equal(t, "00000000-0000-00ab-0000-000000000001", prefixed.NewID().String())
	assert.Equal(t, ID(0xab, 2), prefixed.NewID())
}
