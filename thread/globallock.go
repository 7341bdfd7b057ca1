package thread

// GlobalLock is a process-wide lock slot bootstrapped lazily against
// whatever lock vtable (and debug state) happens to be installed at the
// time of first use. It is the Go rendering of libevent's
// evthread_setup_global_lock_ bootstrap (component D), used both for the
// reactor's own main lock and for the signal package's global_sig_lock.
type GlobalLock struct {
	handle any
}

// setupGlobalLocksLocked (re)builds every registered GlobalLock slot
// against the current vtable/debug state. Must be called with mu held.
// This mirrors evthread_setup_global_lock_'s four-case matrix, applied to
// every slot that has asked to participate via NewGlobalLock.
func setupGlobalLocksLocked(enableLocks bool) {
	for _, gl := range globalLocks {
		gl.bootstrapLocked(enableLocks)
	}
}

var globalLocks []*GlobalLock

// NewGlobalLock creates a GlobalLock slot and registers it so future
// SetLockCallbacks/EnableLockDebugging calls (re)bootstrap it.
func NewGlobalLock() *GlobalLock {
	gl := &GlobalLock{}
	mu.Lock()
	globalLocks = append(globalLocks, gl)
	gl.bootstrapLocked(lockFns != nil || debugEnabled)
	mu.Unlock()
	return gl
}

// bootstrapLocked implements the four-case matrix:
//
//	enableLocks=false                      -> a DebugLock with a null inner handle
//	                                          (or wrapping the slot's existing raw lock)
//	enableLocks=true, debug off             -> a raw lock via lockFns.Alloc
//	enableLocks=true, debug on, slot empty   -> a DebugLock wrapping a fresh raw lock
//	enableLocks=true, debug on, slot filled  -> fill in the existing DebugLock's inner handle
//
// Must be called with mu held.
func (gl *GlobalLock) bootstrapLocked(enableLocks bool) {
	if !enableLocks {
		if gl.handle == nil {
			gl.handle = &debugLock{locktype: LockTypeRecursive}
		} else if _, ok := gl.handle.(*debugLock); !ok {
			gl.handle = &debugLock{locktype: LockTypeRecursive, inner: gl.handle}
		}
		return
	}

	if !debugEnabled {
		if lockFns != nil && lockFns.Alloc != nil {
			if h, err := lockFns.Alloc(LockTypeRecursive); err == nil {
				gl.handle = h
			}
		}
		return
	}

	// debug on.
	if dl, ok := gl.handle.(*debugLock); ok {
		if dl.inner == nil && originalLockFns != nil && originalLockFns.Alloc != nil {
			if h, err := originalLockFns.Alloc(LockTypeRecursive); err == nil {
				dl.inner = h
			}
		}
		return
	}

	dl := &debugLock{locktype: LockTypeRecursive}
	if originalLockFns != nil && originalLockFns.Alloc != nil {
		if h, err := originalLockFns.Alloc(LockTypeRecursive); err == nil {
			dl.inner = h
		}
	}
	gl.handle = dl
}

// Lock acquires the global lock in exclusive mode.
func (gl *GlobalLock) Lock() {
	mu.Lock()
	fns, handle := currentLockFns(), gl.handle
	mu.Unlock()

	if fns == nil || fns.Lock == nil || handle == nil {
		return
	}
	_ = fns.Lock(LockWrite, handle)
}

// Unlock releases the global lock.
func (gl *GlobalLock) Unlock() {
	mu.Lock()
	fns, handle := currentLockFns(), gl.handle
	mu.Unlock()

	if fns == nil || fns.Unlock == nil || handle == nil {
		return
	}
	_ = fns.Unlock(LockWrite, handle)
}

// currentLockFns returns whichever table is live right now: the debug
// decorator if debugging is enabled, else the raw installed table. Must
// be called with mu held.
func currentLockFns() *LockCallbacks {
	return lockFns
}
