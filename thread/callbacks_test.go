package thread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// dummyAlloc/dummyFree/dummyLock/dummyUnlock are package-level named
// functions (not closures) so two separate *LockCallbacks values built
// from them compare equal under sameFunc's %p-based check — that is the
// "bit-identical reinstall" case P7 exercises.
func dummyAlloc(locktype LockType) (any, error) { return new(int), nil }
func dummyFree(lock any, locktype LockType)     {}
func dummyLock(mode LockMode, lock any) error   { return nil }
func dummyUnlock(mode LockMode, lock any) error { return nil }

func altAlloc(locktype LockType) (any, error) { return new(int), nil }

func TestSetLockCallbacksBitIdenticalReinstall(t *testing.T) {
	snapshotGlobals(t)
	require.NoError(t, SetLockCallbacks(nil))

	cb1 := &LockCallbacks{
		APIVersion:         LockAPIVersion,
		SupportedLockTypes: LockTypeRecursive,
		Alloc:              dummyAlloc,
		Free:               dummyFree,
		Lock:               dummyLock,
		Unlock:             dummyUnlock,
	}
	require.NoError(t, SetLockCallbacks(cb1))

	// A distinct struct value, but with the exact same function pointers
	// and fields, must be accepted as a no-op reinstall.
	cb2 := &LockCallbacks{
		APIVersion:         LockAPIVersion,
		SupportedLockTypes: LockTypeRecursive,
		Alloc:              dummyAlloc,
		Free:               dummyFree,
		Lock:               dummyLock,
		Unlock:             dummyUnlock,
	}
	require.NoError(t, SetLockCallbacks(cb2))

	// A table that differs in even one function must be rejected.
	cb3 := &LockCallbacks{
		APIVersion:         LockAPIVersion,
		SupportedLockTypes: LockTypeRecursive,
		Alloc:              altAlloc,
		Free:               dummyFree,
		Lock:               dummyLock,
		Unlock:             dummyUnlock,
	}
	require.Error(t, SetLockCallbacks(cb3))
}

func TestSetLockCallbacksRejectsBadAPIVersion(t *testing.T) {
	snapshotGlobals(t)
	require.NoError(t, SetLockCallbacks(nil))

	err := SetLockCallbacks(&LockCallbacks{
		APIVersion:         LockAPIVersion + 1,
		SupportedLockTypes: LockTypeRecursive,
		Alloc:              dummyAlloc,
		Free:               dummyFree,
		Lock:               dummyLock,
		Unlock:             dummyUnlock,
	})
	require.Error(t, err)
}

func TestSetLockCallbacksRequiresRecursiveSupport(t *testing.T) {
	snapshotGlobals(t)
	require.NoError(t, SetLockCallbacks(nil))

	err := SetLockCallbacks(&LockCallbacks{
		APIVersion:         LockAPIVersion,
		SupportedLockTypes: LockTypeReadWrite,
		Alloc:              dummyAlloc,
		Free:               dummyFree,
		Lock:               dummyLock,
		Unlock:             dummyUnlock,
	})
	require.Error(t, err)
}

func dummyCondAlloc(condtype uint32) (any, error)               { return new(int), nil }
func dummyCondFree(cond any)                                    {}
func dummyCondSignal(cond any, broadcast bool) error            { return nil }
func dummyCondWait(cond, lock any, timeout *float64) (WaitResult, error) {
	return WaitSignalled, nil
}

func TestSetConditionCallbacksBitIdenticalReinstall(t *testing.T) {
	snapshotGlobals(t)
	require.NoError(t, SetConditionCallbacks(nil))

	cb := &ConditionCallbacks{
		APIVersion: ConditionAPIVersion,
		Alloc:      dummyCondAlloc,
		Free:       dummyCondFree,
		Signal:     dummyCondSignal,
		Wait:       dummyCondWait,
	}
	require.NoError(t, SetConditionCallbacks(cb))
	require.NoError(t, SetConditionCallbacks(&ConditionCallbacks{
		APIVersion: ConditionAPIVersion,
		Alloc:      dummyCondAlloc,
		Free:       dummyCondFree,
		Signal:     dummyCondSignal,
		Wait:       dummyCondWait,
	}))

	require.Error(t, SetConditionCallbacks(&ConditionCallbacks{
		APIVersion: ConditionAPIVersion,
		Alloc:      dummyCondAlloc,
		Free:       dummyCondFree,
		Signal:     dummyCondSignal,
		Wait: func(cond, lock any, timeout *float64) (WaitResult, error) {
			return WaitTimedOut, nil
		},
	}))
}

func TestSetIDCallbackAndCurrentThreadID(t *testing.T) {
	snapshotGlobals(t)

	idFn = nil
	require.EqualValues(t, 1, CurrentThreadID())

	SetIDCallback(func() uint64 { return 42 })
	require.EqualValues(t, 42, CurrentThreadID())
}
