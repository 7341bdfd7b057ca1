package reactor

import (
	"sync/atomic"
)

// BaseState represents the current state of a reactor Base.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (3)      [Run()]
//	StateRunning (3) → StateSleeping (2)   [poll() via CAS]
//	StateRunning (3) → StateTerminating (4) [Shutdown()]
//	StateSleeping (2) → StateRunning (3)   [poll() wake via CAS]
//	StateSleeping (2) → StateTerminating (4) [Shutdown()]
//	StateTerminating (4) → StateTerminated (1) [shutdown complete]
//	StateTerminated (1) → (terminal)
//
// Use TryTransition (CAS) for temporary states (Running, Sleeping) and
// Store for irreversible states (Terminated). Calling Store(Running) or
// Store(Sleeping) directly breaks the CAS logic and is a bug.
type BaseState uint64

const (
	// StateAwake indicates the base has been created but not started.
	StateAwake BaseState = 0
	// StateTerminated indicates the base has stopped and is fully shut down.
	StateTerminated BaseState = 1
	// StateSleeping indicates the base is blocked in poll waiting for events.
	StateSleeping BaseState = 2
	// StateRunning indicates the base is actively dispatching events.
	StateRunning BaseState = 3
	// StateTerminating indicates shutdown has been requested but not completed.
	StateTerminating BaseState = 4
)

// String returns a human-readable representation of the state.
func (s BaseState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// FastState is a lock-free state machine with cache-line padding.
//
// Uses pure atomic CAS operations with no mutex. Cache-line padding
// prevents false sharing between cores when the Base is polled and
// mutated from different goroutines.
type FastState struct { // betteralign:ignore
	_ [64]byte      // cache line padding //nolint:unused
	v atomic.Uint64 // state value
	_ [56]byte      // pad to complete cache line //nolint:unused
}

// NewFastState creates a new state machine in the Awake state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() BaseState {
	return BaseState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation.
func (s *FastState) Store(state BaseState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another. Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to BaseState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// TransitionAny attempts to transition from any valid source state to
// the target. Returns true if the transition was successful.
func (s *FastState) TransitionAny(validFrom []BaseState, to BaseState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the current state is terminal (Terminated).
func (s *FastState) IsTerminal() bool {
	return s.Load() == StateTerminated
}

// IsRunning returns true if the base is currently running or sleeping.
func (s *FastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}

// CanAcceptWork returns true if the base can accept new events.
func (s *FastState) CanAcceptWork() bool {
	state := s.Load()
	return state == StateAwake || state == StateRunning || state == StateSleeping
}
