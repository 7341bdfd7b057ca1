package thread

import (
	"sync"
	"sync/atomic"
	"time"
)

// posixLock adapts sync.Mutex to the LockCallbacks contract, with a thin
// recursion layer: upstream requests PTHREAD_MUTEX_RECURSIVE and gets
// reentrant-by-owner-thread semantics from the kernel for free, but
// Go's sync.Mutex has no notion of an owner. owner is tracked with an
// atomic so the reentrancy check in posixLockFn (read by any goroutine,
// racing with the owning goroutine's own writes under mu) never sees a
// torn value; count is only ever touched by whichever goroutine
// currently holds mu (or is in the middle of acquiring it), so it needs
// no separate synchronization. This core always requests
// LockTypeRecursive, so every posixLock is a recursive mutex; it treats
// LockRead the same as LockWrite (LockTypeReadWrite is reserved and
// unused by this core, so there is no concurrent-reader case to
// optimize for).
type posixLock struct {
	mu    sync.Mutex
	count int
	owner atomic.Uint64
}

func posixAlloc(locktype LockType) (any, error) {
	return &posixLock{}, nil
}

func posixFree(lock any, locktype LockType) {
	// sync.Mutex needs no explicit teardown.
}

func posixLockFn(mode LockMode, lock any) error {
	pl := lock.(*posixLock)
	me := CurrentThreadID()
	if pl.owner.Load() == me && pl.count > 0 {
		pl.count++
		return nil
	}
	pl.mu.Lock()
	pl.owner.Store(me)
	pl.count = 1
	return nil
}

func posixUnlockFn(mode LockMode, lock any) error {
	pl := lock.(*posixLock)
	pl.count--
	if pl.count == 0 {
		pl.owner.Store(0)
		pl.mu.Unlock()
	}
	return nil
}

// posixCond implements the ConditionCallbacks contract with a channel
// that Signal closes and replaces, so Signal wakes every current waiter
// whether or not broadcast is set.
type posixCond struct {
	ch chan struct{}
	mu sync.Mutex
}

func posixCondAlloc(condtype uint32) (any, error) {
	return &posixCond{ch: make(chan struct{})}, nil
}

func posixCondFree(cond any) {}

func posixCondSignal(cond any, broadcast bool) error {
	pc := cond.(*posixCond)
	pc.mu.Lock()
	defer pc.mu.Unlock()
	close(pc.ch)
	pc.ch = make(chan struct{})
	return nil
}

func posixCondWait(cond any, lock any, timeout *float64) (WaitResult, error) {
	pc := cond.(*posixCond)
	pc.mu.Lock()
	ch := pc.ch
	pc.mu.Unlock()

	pl, ok := lock.(*posixLock)
	if ok {
		posixUnlockFn(LockWrite, pl)
	}
	defer func() {
		if ok {
			posixLockFn(LockWrite, pl)
		}
	}()

	if timeout == nil {
		<-ch
		return WaitSignalled, nil
	}
	select {
	case <-ch:
		return WaitSignalled, nil
	case <-time.After(time.Duration(*timeout * float64(time.Second))):
		return WaitTimedOut, nil
	}
}

// UsePosixThreads installs sync-package-backed lock and condition
// callbacks, the Go analogue of evthread_use_pthreads: a convenience
// wrapper calling SetLockCallbacks/SetConditionCallbacks/SetIDCallback
// with a coherent set of primitives.
func UsePosixThreads() error {
	if err := SetLockCallbacks(&LockCallbacks{
		APIVersion:         LockAPIVersion,
		SupportedLockTypes: LockTypeRecursive,
		Alloc:              posixAlloc,
		Free:               posixFree,
		Lock:               posixLockFn,
		Unlock:             posixUnlockFn,
	}); err != nil {
		return err
	}
	if err := SetConditionCallbacks(&ConditionCallbacks{
		APIVersion: ConditionAPIVersion,
		Alloc:      posixCondAlloc,
		Free:       posixCondFree,
		Signal:     posixCondSignal,
		Wait:       posixCondWait,
	}); err != nil {
		return err
	}
	// Go has no pthread_self: GoroutineID is this package's equivalent of
	// evthread_posix_get_id, needed so posixLockFn's reentrancy check
	// distinguishes one goroutine from another instead of every caller
	// defaulting to the shared thread-id 1.
	SetIDCallback(GoroutineID)
	return nil
}
