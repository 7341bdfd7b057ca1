package thread

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGoroutineIDDistinctAcrossGoroutines checks that concurrently
// running goroutines observe different ids, and that each goroutine
// consistently sees the same id across repeated calls.
func TestGoroutineIDDistinctAcrossGoroutines(t *testing.T) {
	const n = 8
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			first := GoroutineID()
			second := GoroutineID()
			require.Equal(t, first, second)
			ids[i] = first
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "goroutine ids must be unique")
		seen[id] = true
	}
}
