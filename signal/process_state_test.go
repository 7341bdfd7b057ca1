//go:build linux || darwin

package signal

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSecondRegistrantBecomesOwner covers P4/S5: when a second Bridge
// registers a signal while a first Bridge already owns process-wide
// signal delivery, ownership transfers to the second and a warning is
// logged through the second bridge's own host — the registrant, not the
// bumped owner, is the one told its registration shadowed another.
func TestSecondRegistrantBecomesOwner(t *testing.T) {
	hostA, hostB := newFakeHost(), newFakeHost()
	a, b := NewBridge(hostA), NewBridge(hostB)
	require.NoError(t, a.Init())
	require.NoError(t, b.Init())
	defer a.Dealloc()
	defer b.Dealloc()

	require.NoError(t, a.Register(int(syscall.SIGHUP)))

	globalSigLock.Lock()
	owner := processSignalState.owner
	globalSigLock.Unlock()
	require.Same(t, a, owner)

	require.NoError(t, b.Register(int(syscall.SIGTERM)))

	globalSigLock.Lock()
	owner = processSignalState.owner
	globalSigLock.Unlock()
	require.Same(t, b, owner)

	require.NotEmpty(t, hostB.snapshotWarnings())
	require.Empty(t, hostA.snapshotWarnings())

	// Only the current owner's pipe receives relayed bytes, regardless of
	// which bridge originally registered the signal: raising SIGHUP (A's
	// registration) must land on B's pipe now that B owns delivery, and A
	// must see nothing at all.
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	waitFor(t, 2*time.Second, func() bool {
		hostB.callback(b.info.pipeRX)()
		return len(hostB.snapshotActivations()) > 0
	})

	hostA.callback(a.info.pipeRX)()
	require.Empty(t, hostA.snapshotActivations(), "the bumped-out owner's own pipe receives nothing")
	require.NotEmpty(t, hostB.snapshotActivations())
}

// TestDeallocReleasesOwnershipForNextRegistrant ensures a torn-down
// owner's slot is fully cleared so a subsequent Bridge can take over
// cleanly (no stale owner pointer, no stale pipe target).
func TestDeallocReleasesOwnershipForNextRegistrant(t *testing.T) {
	host1 := newFakeHost()
	b1 := NewBridge(host1)
	require.NoError(t, b1.Init())
	require.NoError(t, b1.Register(int(syscall.SIGUSR1)))
	require.NoError(t, b1.Dealloc())

	globalSigLock.Lock()
	require.Nil(t, processSignalState.owner)
	require.Equal(t, 0, processSignalState.ownerSignalsAdded)
	globalSigLock.Unlock()
	require.Equal(t, -1, ownerPipeTX.Load())

	host2 := newFakeHost()
	b2 := NewBridge(host2)
	require.NoError(t, b2.Init())
	defer b2.Dealloc()
	require.NoError(t, b2.Register(int(syscall.SIGUSR1)))

	globalSigLock.Lock()
	require.Same(t, b2, processSignalState.owner)
	globalSigLock.Unlock()
	require.Empty(t, host2.snapshotWarnings(), "no prior live owner to warn about")
}
