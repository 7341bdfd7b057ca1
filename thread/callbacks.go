// Package thread provides the pluggable lock, condition-variable, and
// thread-id primitives a reactor.Base needs for multi-threaded correctness,
// plus a debug wrapper that enforces lock discipline at runtime.
//
// The design mirrors libevent's evthread.c: a process-wide, install-once
// vtable of lock/condition callbacks, installed before any reactor exists,
// with an optional debug-mode decorator that can be layered on top without
// disturbing callers holding a reference to the undecorated table.
package thread

import (
	"fmt"
	"sync"
)

// LockMode is a bitset describing how Lock/Unlock should be applied.
type LockMode uint32

const (
	// LockWrite requests exclusive (write) access.
	LockWrite LockMode = 0x04
	// LockRead requests shared (read) access.
	LockRead LockMode = 0x08
	// LockTry requests a non-blocking attempt.
	LockTry LockMode = 0x10
)

// LockType describes the capability a lock handle was allocated with.
type LockType uint32

const (
	// LockTypeRecursive is the only mandatory lock type: the reactor's
	// main lock is always recursive.
	LockTypeRecursive LockType = 1
	// LockTypeReadWrite is reserved and currently unused by this core,
	// matching the upstream "reserved" annotation.
	LockTypeReadWrite LockType = 2
)

// LockAPIVersion is the only lock-callback API version this package
// understands, matching the upstream constant.
const LockAPIVersion = 1

// ConditionAPIVersion is the only condition-callback API version this
// package understands.
const ConditionAPIVersion = 1

// LockCallbacks is the pluggable lock vtable. All five fields plus
// SupportedLockTypes must be set for a table to be accepted by
// SetLockCallbacks; see that function's install-once semantics.
type LockCallbacks struct {
	APIVersion          int
	SupportedLockTypes  LockType
	Alloc               func(locktype LockType) (any, error)
	Free                func(lock any, locktype LockType)
	Lock                func(mode LockMode, lock any) error
	Unlock              func(mode LockMode, lock any) error
}

// ConditionCallbacks is the pluggable condition-variable vtable.
type ConditionCallbacks struct {
	APIVersion int
	Alloc      func(condtype uint32) (any, error)
	Free       func(cond any)
	Signal     func(cond any, broadcast bool) error
	// Wait releases lock around the sleep and reacquires it before
	// returning. timeout of nil means wait indefinitely. Returns
	// WaitSignalled, WaitTimedOut, or an error.
	Wait func(cond any, lock any, timeout *float64) (WaitResult, error)
}

// WaitResult is the outcome of a ConditionCallbacks.Wait call.
type WaitResult int

const (
	// WaitSignalled indicates the condition was signalled before timeout.
	WaitSignalled WaitResult = iota
	// WaitTimedOut indicates the wait's deadline elapsed first.
	WaitTimedOut
)

var (
	mu sync.Mutex

	lockFns         *LockCallbacks
	condFns         *ConditionCallbacks
	idFn            func() uint64
	debugEnabled    bool
	originalLockFns *LockCallbacks
	originalCondFns *ConditionCallbacks
)

func lockCallbacksEqual(a, b *LockCallbacks) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.APIVersion == b.APIVersion &&
		a.SupportedLockTypes == b.SupportedLockTypes &&
		sameFunc(a.Alloc, b.Alloc) &&
		sameFunc(a.Free, b.Free) &&
		sameFunc(a.Lock, b.Lock) &&
		sameFunc(a.Unlock, b.Unlock)
}

func conditionCallbacksEqual(a, b *ConditionCallbacks) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.APIVersion == b.APIVersion &&
		sameFunc(a.Alloc, b.Alloc) &&
		sameFunc(a.Free, b.Free) &&
		sameFunc(a.Signal, b.Signal) &&
		sameFunc(a.Wait, b.Wait)
}

// SetLockCallbacks installs the process-wide lock vtable.
//
// Passing nil clears the table. If a table is already installed and the
// new one is bit-identical (by function pointer and field value), the
// call succeeds silently. If a different table is already installed, the
// call fails rather than silently discarding state a caller may be
// relying on.
//
// On success with a non-nil table, global_setup_locks is triggered with
// enable_locks=true so any process-wide lock slot (notably the signal
// package's global lock) is lazily (re)built against the new table.
func SetLockCallbacks(cb *LockCallbacks) error {
	mu.Lock()
	defer mu.Unlock()

	if cb == nil {
		lockFns = nil
		return nil
	}
	if cb.APIVersion != LockAPIVersion {
		return fmt.Errorf("thread: unsupported lock API version %d", cb.APIVersion)
	}
	if cb.SupportedLockTypes&LockTypeRecursive == 0 {
		return fmt.Errorf("thread: lock callbacks must support LockTypeRecursive")
	}
	if cb.Alloc == nil || cb.Free == nil || cb.Lock == nil || cb.Unlock == nil {
		return fmt.Errorf("thread: lock callbacks must set Alloc, Free, Lock and Unlock")
	}

	target := &lockFns
	if debugEnabled {
		target = &originalLockFns
	}

	if *target != nil {
		if lockCallbacksEqual(*target, cb) {
			return nil
		}
		return fmt.Errorf("thread: lock callbacks already installed with a different table")
	}

	cp := *cb
	*target = &cp
	setupGlobalLocksLocked(true)
	return nil
}

// SetConditionCallbacks installs the process-wide condition vtable, with
// the same install-once / bit-identical-reinstall semantics as
// SetLockCallbacks.
//
// If debug-mode lock wrapping is already active, the debug Wait wrapper
// stays pointed at the freshly installed table's Alloc/Free/Signal rather
// than silently reverting to a raw, unwrapped condition variable.
func SetConditionCallbacks(cb *ConditionCallbacks) error {
	mu.Lock()
	defer mu.Unlock()

	if cb == nil {
		condFns = nil
		return nil
	}
	if cb.APIVersion != ConditionAPIVersion {
		return fmt.Errorf("thread: unsupported condition API version %d", cb.APIVersion)
	}

	target := &condFns
	if debugEnabled {
		target = &originalCondFns
	}

	if *target != nil {
		if conditionCallbacksEqual(*target, cb) {
			return nil
		}
		return fmt.Errorf("thread: condition callbacks already installed with a different table")
	}

	cp := *cb
	*target = &cp
	if debugEnabled {
		condFns = &ConditionCallbacks{
			APIVersion: ConditionAPIVersion,
			Alloc:      cp.Alloc,
			Free:       cp.Free,
			Signal:     cp.Signal,
			Wait:       debugCondWait,
		}
	}
	return nil
}

// SetIDCallback installs the thread-id provider (component A). Install-once
// in spirit: overwriting is allowed but discouraged, and there is no lock
// around the write because all installation must happen before any
// reactor is created.
func SetIDCallback(fn func() uint64) {
	idFn = fn
}

// CurrentThreadID returns the installed thread-id, or 1 if none was set,
// so single-threaded programs trivially satisfy "owner == me" assertions.
func CurrentThreadID() uint64 {
	if idFn == nil {
		return 1
	}
	return idFn()
}

// sameFunc compares two function values by their %p rendering, i.e. their
// code pointers (two nil funcs compare equal). Go forbids direct
// comparison of non-nil func values, so this is how bit-identical
// reinstall is judged, together with the table's other fields.
func sameFunc[T any](a, b T) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}
