package thread

import "fmt"

// debugLock wraps a real lock handle with invariants: no double-free,
// correct owner on unlock, recursion only when declared recursive. This
// is the Go rendering of libevent's struct debug_lock.
type debugLock struct {
	locktype LockType
	heldBy   uint64
	count    int
	inner    any
}

// EnableLockDebugging activates the debug lock wrapper (component C).
// Latched once; calling it again is a no-op, matching the upstream
// one-way latch.
//
// Activation snapshots the current lock/condition tables into
// originalLockFns/originalCondFns, installs a decorating vtable in their
// place, and triggers global_setup_locks with enable_locks=false so the
// global lock slot picks up debug wrapping even if it was never
// explicitly locked before.
func EnableLockDebugging() {
	mu.Lock()
	defer mu.Unlock()

	if debugEnabled {
		return
	}
	debugEnabled = true
	originalLockFns = lockFns
	originalCondFns = condFns

	lockFns = &LockCallbacks{
		APIVersion:         LockAPIVersion,
		SupportedLockTypes: LockTypeRecursive,
		Alloc:              debugLockAlloc,
		Free:               debugLockFree,
		Lock:               debugLockLock,
		Unlock:             debugLockUnlock,
	}
	if originalCondFns != nil {
		condFns = &ConditionCallbacks{
			APIVersion: ConditionAPIVersion,
			Alloc:      originalCondFns.Alloc,
			Free:       originalCondFns.Free,
			Signal:     originalCondFns.Signal,
			Wait:       debugCondWait,
		}
	}
	setupGlobalLocksLocked(false)
}

// debugLockAlloc always requests LockTypeRecursive from the underlying
// allocator regardless of the caller's declared type, so any observed
// non-recursive violation is attributable to caller misuse rather than
// the underlying primitive (mirrors evthread.c's debug_lock_alloc).
func debugLockAlloc(locktype LockType) (any, error) {
	dl := &debugLock{locktype: locktype}
	if originalLockFns != nil && originalLockFns.Alloc != nil {
		inner, err := originalLockFns.Alloc(LockTypeRecursive)
		if err != nil {
			return nil, err
		}
		dl.inner = inner
	}
	return dl, nil
}

func debugLockFree(lock any, locktype LockType) {
	dl, ok := lock.(*debugLock)
	if !ok {
		panic("thread: debugLockFree called with a non-debug lock handle")
	}
	if dl.count != 0 {
		panic(fmt.Sprintf("thread: free called while lock held (count=%d)", dl.count))
	}
	if dl.locktype != locktype {
		panic("thread: free called with a locktype that does not match allocation")
	}
	if originalLockFns != nil && originalLockFns.Free != nil && dl.inner != nil {
		originalLockFns.Free(dl.inner, LockTypeRecursive)
	}
	dl.count = -100 // poison, to catch use-after-free
}

func debugLockLock(mode LockMode, lock any) error {
	dl, ok := lock.(*debugLock)
	if !ok {
		panic("thread: debugLockLock called with a non-debug lock handle")
	}
	if dl.locktype == LockTypeReadWrite {
		if mode&(LockRead|LockWrite) == 0 {
			panic("thread: read/write lock requires READ or WRITE mode bit")
		}
	} else if mode&(LockRead|LockWrite) != 0 && mode&LockWrite == 0 && mode&LockRead != 0 {
		panic("thread: non-readwrite lock does not support READ mode")
	}

	if originalLockFns != nil && originalLockFns.Lock != nil && dl.inner != nil {
		if err := originalLockFns.Lock(mode, dl.inner); err != nil {
			return err
		}
	}

	markLocked(dl)
	return nil
}

func debugLockUnlock(mode LockMode, lock any) error {
	dl, ok := lock.(*debugLock)
	if !ok {
		panic("thread: debugLockUnlock called with a non-debug lock handle")
	}
	markUnlocked(dl)

	if originalLockFns != nil && originalLockFns.Unlock != nil && dl.inner != nil {
		return originalLockFns.Unlock(mode, dl.inner)
	}
	return nil
}

// markLocked enforces the post-acquire invariants: count += 1; abort if a
// non-recursive lock is re-entered; assert the recursive re-entrant
// owner matches this thread when a thread-id is known.
func markLocked(dl *debugLock) {
	dl.count++
	if dl.locktype != LockTypeRecursive && dl.count != 1 {
		panic("thread: non-recursive lock locked recursively")
	}
	me := CurrentThreadID()
	if dl.count > 1 && dl.heldBy != 0 && dl.heldBy != me {
		panic("thread: recursive lock re-entered by a different thread than the holder")
	}
	dl.heldBy = me
}

// markUnlocked enforces: assert held by the calling thread; clear the
// owner when the last recursive level unwinds; assert count never goes
// negative.
func markUnlocked(dl *debugLock) {
	me := CurrentThreadID()
	if dl.heldBy != me {
		panic("thread: unlock called from a thread that does not hold the lock")
	}
	if dl.count == 1 {
		dl.heldBy = 0
	}
	dl.count--
	if dl.count < 0 {
		panic("thread: lock count went negative")
	}
}

// debugCondWait wraps the underlying Wait, toggling the lock's
// held/not-held bookkeeping across the sleep: the lock must be held on
// entry, is treated as released for the duration of the wait (mirroring
// what the underlying primitive actually does), and is treated as
// held again once Wait returns.
func debugCondWait(cond any, lock any, timeout *float64) (WaitResult, error) {
	dl, ok := lock.(*debugLock)
	if !ok {
		panic("thread: debugCondWait called with a non-debug lock handle")
	}
	if dl.heldBy != CurrentThreadID() {
		panic("thread: wait_condition called without holding the lock")
	}

	markUnlocked(dl)
	var (
		result WaitResult
		err    error
	)
	if originalCondFns != nil && originalCondFns.Wait != nil {
		innerLock := lock
		if dl.inner != nil {
			innerLock = dl.inner
		}
		result, err = originalCondFns.Wait(cond, innerLock, timeout)
	}
	markLocked(dl)
	return result, err
}

// isDebugLockHeld reports whether dl is currently held by any thread.
func isDebugLockHeld(dl *debugLock) bool {
	return dl.count > 0
}
