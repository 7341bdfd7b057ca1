package thread

import "testing"

// snapshotGlobals saves every package-level mutable variable this package
// exposes and restores it on test cleanup, so each test can exercise
// SetLockCallbacks/EnableLockDebugging/etc. — including the otherwise
// one-way debug latch — without leaking state into whichever test runs
// next. Real callers never get this reset; it exists only so this
// package's own test suite can treat each test as starting from a blank
// process, the same way catrate's tests patch timeNow/timeNewTicker back
// after themselves.
func snapshotGlobals(t *testing.T) {
	t.Helper()
	mu.Lock()
	savedLockFns := lockFns
	savedCondFns := condFns
	savedIDFn := idFn
	savedDebug := debugEnabled
	savedOrigLock := originalLockFns
	savedOrigCond := originalCondFns
	savedGlobalLocks := append([]*GlobalLock(nil), globalLocks...)
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		lockFns = savedLockFns
		condFns = savedCondFns
		idFn = savedIDFn
		debugEnabled = savedDebug
		originalLockFns = savedOrigLock
		originalCondFns = savedOrigCond
		globalLocks = savedGlobalLocks
		mu.Unlock()
	})
}
