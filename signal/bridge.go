package signal

import (
	"fmt"
	"sync"
)

// SignalInfo holds the per-reactor state a Bridge maintains: the
// self-pipe endpoints, the bridge event's installed flag, and the
// sparse array of saved prior dispositions, one slot per signal number
// this Bridge has ever registered.
type SignalInfo struct {
	pipeRX, pipeTX int
	bridgeInstalled bool
	savedHandlers   []*savedHandler // sparse, index == signum
	signalsAdded    int
}

// savedHandler owns one signal's prior disposition: the relay goroutine
// and channel installed via installHandler, to be torn down by
// restoreHandler. A nil entry means no disposition is currently saved
// for that signum.
type savedHandler struct {
	active bool
	relay  *relay
}

// Bridge is the signal-delivery core for a single reactor instance: it
// owns a self-pipe, installs a relay per registered signal number, and
// drains the pipe into signal_active calls on its Host. Exactly one
// Bridge process-wide is ever the ProcessSignalState owner at a time
// (see Register).
type Bridge struct {
	host Host
	info SignalInfo
	mu   sync.Mutex
}

// NewBridge creates an uninitialized Bridge for host. Call Init before
// registering any signal.
func NewBridge(host Host) *Bridge {
	return &Bridge{host: host}
}

// Init creates the self-pipe and registers the internal bridge event on
// its read end (step E.init in the component design): a socketpair is
// created, both ends are marked close-on-exec and nonblocking, and an
// internal, persistent, priority-0 read event is installed on pipeRX
// whose callback is drainAndDispatch.
func (b *Bridge) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rx, tx, err := newSelfPipe()
	if err != nil {
		return fmt.Errorf("signal: creating self-pipe: %w", err)
	}
	b.info = SignalInfo{pipeRX: rx, pipeTX: tx}

	if err := b.host.RegisterBridgeFD(rx, b.drainAndDispatch); err != nil {
		closeSelfPipe(rx, tx)
		return fmt.Errorf("signal: registering bridge event: %w", err)
	}
	b.info.bridgeInstalled = true
	return nil
}

// Register installs OS signal delivery for signum onto this Bridge
// (component E.register). It claims process-wide ownership — bumping
// out whatever reactor previously owned signal delivery, with a warning,
// matching the historical "most-recently-added wins" compatibility rule
// (the loop-iteration half of that rule is intentionally not
// implemented; see the design notes this package is built against).
func (b *Bridge) Register(signum int) error {
	if !clampSignum(signum) {
		return fmt.Errorf("signal: signum %d out of range [0, %d)", signum, NSIG)
	}

	globalSigLock.Lock()
	prevOwner := processSignalState.owner
	if prevOwner != nil && prevOwner != b && processSignalState.ownerSignalsAdded > 0 && rateLimitedWarn("register") {
		logWarn(b.host, signum, "signal re-registered on a different reactor; only the most recently registered reactor receives OS signals")
	}
	processSignalState.owner = b
	processSignalState.ownerSignalsAdded++
	b.mu.Lock()
	b.info.signalsAdded++
	ownerPipeTX.Store(b.info.pipeTX)
	b.mu.Unlock()
	globalSigLock.Unlock()

	if err := b.installHandler(signum); err != nil {
		globalSigLock.Lock()
		processSignalState.ownerSignalsAdded--
		globalSigLock.Unlock()
		b.mu.Lock()
		b.info.signalsAdded--
		b.mu.Unlock()
		return err
	}
	return nil
}

// Unregister reverses Register for signum: it decrements the ownership
// counters and restores the prior OS disposition. The bridge event
// itself stays installed until Dealloc, matching the upstream choice to
// avoid flapping the internal event on every registration change.
func (b *Bridge) Unregister(signum int) error {
	if !clampSignum(signum) {
		return fmt.Errorf("signal: signum %d out of range [0, %d)", signum, NSIG)
	}

	globalSigLock.Lock()
	if processSignalState.ownerSignalsAdded > 0 {
		processSignalState.ownerSignalsAdded--
	}
	globalSigLock.Unlock()

	b.mu.Lock()
	if b.info.signalsAdded > 0 {
		b.info.signalsAdded--
	}
	b.mu.Unlock()

	return b.restoreHandler(signum)
}

// Dealloc tears the Bridge down (component E.dealloc): the bridge event
// is deleted before anything else is torn down, so no in-flight callback
// can observe closed pipe fds; every saved disposition is restored; the
// ProcessSignalState singleton is cleared if this Bridge was the owner;
// both pipe ends are closed.
func (b *Bridge) Dealloc() error {
	b.mu.Lock()
	installed := b.info.bridgeInstalled
	rx, tx := b.info.pipeRX, b.info.pipeTX
	saved := b.info.savedHandlers
	b.info.bridgeInstalled = false
	b.mu.Unlock()

	if installed {
		_ = b.host.UnregisterBridgeFD(rx)
	}

	for signum, sh := range saved {
		if sh != nil && sh.active {
			_ = b.restoreHandler(signum)
		}
	}

	globalSigLock.Lock()
	if processSignalState.owner == b {
		processSignalState.owner = nil
		processSignalState.ownerSignalsAdded = 0
		ownerPipeTX.Store(-1)
	}
	globalSigLock.Unlock()

	closeSelfPipe(rx, tx)
	return nil
}

func logWarn(host Host, signum int, msg string) {
	if lw, ok := host.(interface{ LogWarn(int, string) }); ok {
		lw.LogWarn(signum, msg)
	}
}
