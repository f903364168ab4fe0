package kruntime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitRuntimeSharesSingletonAcrossCalls exercises the refcounted
// shared-process-runtime contract: repeated InitRuntime calls return the
// same *Runtime until every matching CleanupRuntime has run.
func TestInitRuntimeSharesSingletonAcrossCalls(t *testing.T) {
	rtA := InitRuntime()
	rtB := InitRuntime()
	assert.Same(t, rtA, rtB)

	CleanupRuntime()
	// One CleanupRuntime left outstanding from rtB's InitRuntime; the
	// runtime must still be alive and handed back out.
	rtC := InitRuntime()
	assert.Same(t, rtA, rtC)

	CleanupRuntime()
	CleanupRuntime()
	assert.Nil(t, globalRuntime)
}

// TestInitRuntimeAfterFullCleanupBuildsFreshRuntime confirms that once the
// refcount drops to zero, the next InitRuntime starts a brand new Runtime
// rather than resurrecting the torn-down one.
func TestInitRuntimeAfterFullCleanupBuildsFreshRuntime(t *testing.T) {
	first := InitRuntime()
	CleanupRuntime()
	require.Nil(t, globalRuntime)

	second := InitRuntime()
	defer CleanupRuntime()
	assert.NotSame(t, first, second)
}

// TestInitRuntimeConcurrentCallersConverge fires many concurrent InitRuntime
// calls at a cold singleton and checks they all converge on one Runtime
// rather than racing to build their own, the case init_in_progress/
// globalCond guards against.
func TestInitRuntimeConcurrentCallersConverge(t *testing.T) {
	const n = 32
	results := make([]*Runtime, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = InitRuntime()
		}(i)
	}
	wg.Wait()
	defer func() {
		for i := 0; i < n; i++ {
			CleanupRuntime()
		}
	}()

	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}
