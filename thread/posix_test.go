package thread

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestUsePosixThreadsSmoke checks that UsePosixThreads installs a
// coherent, usable set of callbacks end to end.
func TestUsePosixThreadsSmoke(t *testing.T) {
	snapshotGlobals(t)
	mu.Lock()
	lockFns, debugEnabled, originalLockFns, condFns, originalCondFns = nil, false, nil, nil, nil
	mu.Unlock()

	require.NoError(t, UsePosixThreads())

	gl := NewGlobalLock()
	gl.Lock()
	gl.Lock() // recursive: must not deadlock.
	gl.Unlock()
	gl.Unlock()

	require.NotEqualValues(t, 1, CurrentThreadID(), "SetIDCallback(GoroutineID) must have replaced the fallback")
}

// TestPosixLockRecursiveSameGoroutine exercises a single recursive lock
// three levels deep on one goroutine.
func TestPosixLockRecursiveSameGoroutine(t *testing.T) {
	pl := &posixLock{}
	SetIDCallback(GoroutineID)
	t.Cleanup(func() { idFn = nil })

	require.NoError(t, posixLockFn(LockWrite, pl))
	require.NoError(t, posixLockFn(LockWrite, pl))
	require.NoError(t, posixLockFn(LockWrite, pl))
	require.NoError(t, posixUnlockFn(LockWrite, pl))
	require.NoError(t, posixUnlockFn(LockWrite, pl))
	require.NoError(t, posixUnlockFn(LockWrite, pl))
}

// TestPosixLockConcurrentRecursionNoDeadlock covers S3: four goroutines
// each recursively lock-and-unlock their own distinct *posixLock three
// levels deep, repeatedly, with no deadlock — and a shared counter,
// guarded by one further posixLock, proves mutual exclusion actually
// holds (no torn increments) rather than the reentrancy check
// accidentally treating every goroutine as "the same thread".
func TestPosixLockConcurrentRecursionNoDeadlock(t *testing.T) {
	snapshotGlobals(t)
	SetIDCallback(GoroutineID)

	const goroutines = 4
	const iterations = 500

	shared := &posixLock{}
	counter := 0

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			own := &posixLock{}
			for i := 0; i < iterations; i++ {
				require.NoError(t, posixLockFn(LockWrite, own))
				require.NoError(t, posixLockFn(LockWrite, own))
				require.NoError(t, posixLockFn(LockWrite, own))

				require.NoError(t, posixLockFn(LockWrite, shared))
				counter++
				require.NoError(t, posixUnlockFn(LockWrite, shared))

				require.NoError(t, posixUnlockFn(LockWrite, own))
				require.NoError(t, posixUnlockFn(LockWrite, own))
				require.NoError(t, posixUnlockFn(LockWrite, own))
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("deadlock: goroutines did not finish within 10s")
	}

	require.Equal(t, goroutines*iterations, counter)
}

// TestPosixCondWaitTimesOut covers P6: Wait with a timeout returns
// WaitTimedOut, bounded close to the requested duration, when never
// signalled.
func TestPosixCondWaitTimesOut(t *testing.T) {
	pl := &posixLock{}
	cond, err := posixCondAlloc(0)
	require.NoError(t, err)

	require.NoError(t, posixLockFn(LockWrite, pl))
	timeout := 0.1
	start := time.Now()
	result, err := posixCondWait(cond, pl, &timeout)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Equal(t, WaitTimedOut, result)
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
	require.NoError(t, posixUnlockFn(LockWrite, pl))
}

// TestPosixCondSignalWakesWaiter covers the non-timeout path: a waiter
// blocked on Wait(nil) returns WaitSignalled once Signal is called.
func TestPosixCondSignalWakesWaiter(t *testing.T) {
	pl := &posixLock{}
	cond, err := posixCondAlloc(0)
	require.NoError(t, err)

	var woke atomic.Bool
	ready := make(chan struct{})
	go func() {
		require.NoError(t, posixLockFn(LockWrite, pl))
		close(ready)
		result, err := posixCondWait(cond, pl, nil)
		require.NoError(t, err)
		require.Equal(t, WaitSignalled, result)
		woke.Store(true)
		require.NoError(t, posixUnlockFn(LockWrite, pl))
	}()

	<-ready
	time.Sleep(20 * time.Millisecond) // give the waiter time to actually be inside Wait.
	require.NoError(t, posixCondSignal(cond, false))

	require.Eventually(t, woke.Load, 2*time.Second, 5*time.Millisecond)
}
