//go:build linux || darwin

package signal

import "sync"

// activation records one SignalActive call a fakeHost observed.
type activation struct {
	signum int
	n      int
}

// fakeHost is a minimal signal.Host used by this package's own tests: it
// never actually polls anything itself (there is no reactor in these
// tests), so callback invocation is driven explicitly by the test via
// callback(fd)(), simulating the host's poller calling back once the
// self-pipe becomes readable.
type fakeHost struct {
	regMu      sync.Mutex
	registered map[int]func()

	lockMu sync.Mutex

	actMu       sync.Mutex
	activations []activation
	warnings    []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{registered: make(map[int]func())}
}

func (h *fakeHost) RegisterBridgeFD(fd int, cb func()) error {
	h.regMu.Lock()
	defer h.regMu.Unlock()
	h.registered[fd] = cb
	return nil
}

func (h *fakeHost) UnregisterBridgeFD(fd int) error {
	h.regMu.Lock()
	defer h.regMu.Unlock()
	delete(h.registered, fd)
	return nil
}

// callback returns the function registered for fd, or nil.
func (h *fakeHost) callback(fd int) func() {
	h.regMu.Lock()
	defer h.regMu.Unlock()
	return h.registered[fd]
}

func (h *fakeHost) Lock()   { h.lockMu.Lock() }
func (h *fakeHost) Unlock() { h.lockMu.Unlock() }

func (h *fakeHost) SignalActive(signum int, n int) {
	h.actMu.Lock()
	defer h.actMu.Unlock()
	h.activations = append(h.activations, activation{signum: signum, n: n})
}

func (h *fakeHost) LogWarn(signum int, msg string) {
	h.actMu.Lock()
	defer h.actMu.Unlock()
	h.warnings = append(h.warnings, msg)
}

func (h *fakeHost) snapshotActivations() []activation {
	h.actMu.Lock()
	defer h.actMu.Unlock()
	return append([]activation(nil), h.activations...)
}

func (h *fakeHost) snapshotWarnings() []string {
	h.actMu.Lock()
	defer h.actMu.Unlock()
	return append([]string(nil), h.warnings...)
}
