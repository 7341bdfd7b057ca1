// Package signal turns asynchronous, process-wide OS signal deliveries
// into ordinary, race-free events on a single reactor instance, using a
// self-pipe trick. It is the Go rendering of libevent's signal.c: a
// per-reactor Bridge backed by a process-wide ProcessSignalState
// singleton, since OS signal handlers are unavoidably process-global no
// matter how many reactor instances exist.
//
// Go has no raw sigaction hook a user program can install in place of
// the runtime's own signal plumbing. This package substitutes
// os/signal.Notify plus a small relay goroutine for the C
// sigaction/bridge_handler pair; see the relay type and startRelay in
// handler.go for the exact mapping.
package signal

import (
	"sync"

	"github.com/joeycumines/go-eventloop/thread"
)

// NSIG bounds the signal numbers this package tracks, matching the
// upstream single-byte wire encoding (signum must fit in one byte).
const NSIG = 256

// Host is the narrow slice of a reactor's event-registration layer that
// the signal bridge needs (component F, folded into the host's own
// methods rather than a separate glue type). A reactor satisfies this
// interface structurally; the signal package never imports the reactor
// package.
type Host interface {
	// RegisterBridgeFD adds an internal, persistent, highest-priority
	// read event on fd, invoking cb whenever fd is readable. Called
	// exactly once per Bridge, at Init.
	RegisterBridgeFD(fd int, cb func()) error

	// UnregisterBridgeFD removes the event installed by RegisterBridgeFD.
	UnregisterBridgeFD(fd int) error

	// Lock acquires the host's main reactor lock.
	Lock()

	// Unlock releases the host's main reactor lock.
	Unlock()

	// SignalActive marks every user event registered for signum active,
	// with activation multiplicity n.
	SignalActive(signum int, n int)
}

// globalSigLock protects the ProcessSignalState singleton below
// (component D's bootstrap applied to this package's one global lock).
var globalSigLock = thread.NewGlobalLock()

// processSignalState is the single process-wide singleton described in
// the data model: at most one reactor (owner) receives OS signals at a
// time. All fields are read/written only while globalSigLock is held.
var processSignalState struct {
	owner             *Bridge
	ownerSignalsAdded int
}

// ownerPipeTX caches the write end of the current owner's self-pipe for
// use by the relay goroutine (the Go analogue of bridge_handler), which
// must not dereference the Bridge or reactor pointer. It is written only
// while globalSigLock is held and read by the relay goroutine without
// further synchronization, exactly mirroring the upstream contract that
// the handler touches no field but this one.
var ownerPipeTX = newAtomicInt(-1)

// atomicInt is a tiny RWMutex-backed int, standing in for what upstream
// gets for free from the kernel's signal-masking guarantees around a
// plain volatile int.
type atomicInt struct {
	mu sync.RWMutex
	v  int
}

func newAtomicInt(v int) *atomicInt {
	return &atomicInt{v: v}
}

func (a *atomicInt) Store(v int) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

func (a *atomicInt) Load() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.v
}

// clampSignum reports whether s is representable in the single-byte wire
// encoding this package's pipe protocol uses.
func clampSignum(s int) bool {
	return s >= 0 && s < NSIG
}
