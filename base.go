// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeycumines/go-eventloop/signal"
	"github.com/joeycumines/go-eventloop/thread"
)

// wakeablePoller is satisfied by platforms whose poller exposes a native
// wake primitive (currently only poller_windows.go's IOCP-backed
// FastPoller). Base.Notify type-asserts against it on platforms where
// isWakeFdSupported reports false, instead of branching on GOOS directly.
type wakeablePoller interface {
	Wakeup() error
}

// Base is the event reactor: it owns a platform poller, an optional wake
// mechanism, and the bookkeeping that turns an Event into a poller
// registration or a signal bridge registration. It is the Go rendering of
// the teacher's Loop, generalized from a single-purpose timer loop into a
// general priority/persistent event reactor per this repository's Event
// model.
//
// Base.Lock and Base.Unlock are built on the pluggable thread vtable, not
// a bare sync.Mutex. Add/Del/Modify do not take this lock; they guard the
// event tables with the internal mu. Until a lock backend is installed
// (thread.UsePosixThreads or thread.UseWindowsThreads), Lock/Unlock are
// no-ops, matching the single-threaded assumption upstream makes absent
// evthread_use_pthreads.
type Base struct {
	poller FastPoller
	state  *FastState
	lock   *thread.GlobalLock
	logger Logger

	maxSignalPerTick int

	mu           sync.Mutex
	events       map[int]*Event
	signalEvents map[int][]*Event

	bridge      *signal.Bridge
	bridgeOnce  sync.Once
	bridgeErr   error
	bridgeReady bool

	notifiable bool
	wakeRFd    int
	wakeWFd    int

	closeOnce sync.Once
	closeErr  error
}

// New creates a Base: initializes the platform poller and registers its
// main lock with the thread package so a later SetLockCallbacks or
// EnableLockDebugging call (re)bootstraps it, per thread.NewGlobalLock.
func New(opts ...Option) (*Base, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	if cfg.lockDebugging {
		thread.EnableLockDebugging()
	}

	b := &Base{
		state:            NewFastState(),
		logger:           cfg.logger,
		maxSignalPerTick: cfg.maxSignalPerTick,
		events:           make(map[int]*Event),
		signalEvents:     make(map[int][]*Event),
		wakeRFd:          -1,
		wakeWFd:          -1,
	}
	b.lock = thread.NewGlobalLock()
	b.bridge = signal.NewBridge(b)

	if err := b.poller.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// Lock acquires the reactor's main lock.
func (b *Base) Lock() { b.lock.Lock() }

// Unlock releases the reactor's main lock.
func (b *Base) Unlock() { b.lock.Unlock() }

// LogWarn satisfies the duck-typed logging hook the signal package's
// Bridge looks for, routing a signal-scoped warning through the
// configured Logger.
func (b *Base) LogWarn(signum int, msg string) {
	if b.logger == nil || !b.logger.IsEnabled(LevelWarn) {
		return
	}
	b.logger.Log(NewLogEntry(LevelWarn, "signal", msg).Signal(signum).Build())
}

func (b *Base) logf(level LogLevel, category, msg string, err error) {
	if b.logger == nil || !b.logger.IsEnabled(level) {
		return
	}
	entry := NewLogEntry(level, category, msg)
	if err != nil {
		entry = entry.Err(err)
	}
	b.logger.Log(entry.Build())
}

// Add registers ev. Events with EventSignal set are routed to the signal
// bridge (lazily initialized on first use); all others are registered
// with the platform poller. ev.Priority is retained as metadata only and
// is not used to reorder dispatch within a single poll tick: every ready
// callback fires each tick, in the order the poller reports it.
func (b *Base) Add(ev *Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	if err := ev.assign(); err != nil {
		return err
	}
	if !b.state.CanAcceptWork() {
		return ErrClosed
	}

	if ev.Mask&EventSignal != 0 {
		return b.addSignal(ev)
	}
	return b.addIO(ev)
}

func (b *Base) addSignal(ev *Event) error {
	if err := b.ensureBridge(); err != nil {
		return err
	}
	if err := b.bridge.Register(ev.Signal); err != nil {
		return fmt.Errorf("reactor: registering signal %d: %w", ev.Signal, err)
	}

	b.mu.Lock()
	ev.added = true
	b.signalEvents[ev.Signal] = append(b.signalEvents[ev.Signal], ev)
	b.mu.Unlock()
	return nil
}

func (b *Base) addIO(ev *Event) error {
	b.mu.Lock()
	if _, ok := b.events[ev.FD]; ok {
		b.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	b.events[ev.FD] = ev
	b.mu.Unlock()

	if err := b.poller.RegisterFD(ev.FD, ev.Mask&(EventRead|EventWrite), b.wrapIOCallback(ev)); err != nil {
		b.mu.Lock()
		delete(b.events, ev.FD)
		b.mu.Unlock()
		return err
	}
	ev.added = true
	return nil
}

// wrapIOCallback adapts an Event's Callback to the poller's IOCallback
// shape, additionally implementing one-shot semantics: an Event without
// EventPersist is automatically removed after its first dispatch, the Go
// analogue of libevent's default (non-EV_PERSIST) event behavior.
func (b *Base) wrapIOCallback(ev *Event) IOCallback {
	return func(events IOEvents) {
		if ev.Callback != nil {
			ev.Callback(events)
		}
		if ev.Mask&EventPersist == 0 {
			_ = b.Del(ev)
		}
	}
}

// Del removes ev, reversing whichever Add path registered it. Deleting an
// Event that was never added, or was already removed, returns
// ErrFDNotRegistered (fd events) or is a no-op (signal events, matching
// the signal bridge's own tolerance of redundant Unregister calls).
func (b *Base) Del(ev *Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	if ev.Mask&EventSignal != 0 {
		b.mu.Lock()
		list := b.signalEvents[ev.Signal]
		found := false
		for i, e := range list {
			if e == ev {
				list = append(list[:i], list[i+1:]...)
				found = true
				break
			}
		}
		b.signalEvents[ev.Signal] = list
		b.mu.Unlock()
		if !found {
			return nil
		}
		ev.added = false
		return b.bridge.Unregister(ev.Signal)
	}

	b.mu.Lock()
	if _, ok := b.events[ev.FD]; !ok {
		b.mu.Unlock()
		return ErrFDNotRegistered
	}
	delete(b.events, ev.FD)
	b.mu.Unlock()

	ev.added = false
	return b.poller.UnregisterFD(ev.FD)
}

// Modify changes the I/O mask of a registered, non-signal Event in place,
// the Go analogue of re-assigning and re-adding a libevent event without
// a round trip through event_del/event_add.
func (b *Base) Modify(ev *Event, mask IOEvents) error {
	if ev == nil {
		return ErrNilEvent
	}
	if ev.Mask&EventSignal != 0 {
		return fmt.Errorf("reactor: Modify does not support signal events")
	}

	b.mu.Lock()
	if _, ok := b.events[ev.FD]; !ok {
		b.mu.Unlock()
		return ErrFDNotRegistered
	}
	b.mu.Unlock()

	if err := b.poller.ModifyFD(ev.FD, mask&(EventRead|EventWrite)); err != nil {
		return err
	}
	ev.Mask = (ev.Mask &^ (EventRead | EventWrite)) | (mask & (EventRead | EventWrite))
	return nil
}

// ensureBridge lazily initializes the signal bridge on first use, so a
// Base that never registers a signal event never pays for a self-pipe.
func (b *Base) ensureBridge() error {
	b.bridgeOnce.Do(func() {
		b.bridgeErr = b.bridge.Init()
		b.bridgeReady = b.bridgeErr == nil
	})
	return b.bridgeErr
}

// RegisterBridgeFD implements signal.Host: it adds an internal,
// persistent, read-triggered poller registration on fd, ignoring the
// readiness mask since the bridge only ever cares that fd became
// readable. The poller has no priority levels, so this registration is
// dispatched alongside ordinary I/O events rather than ahead of them.
func (b *Base) RegisterBridgeFD(fd int, cb func()) error {
	return b.poller.RegisterFD(fd, EventRead, func(IOEvents) { cb() })
}

// UnregisterBridgeFD implements signal.Host.
func (b *Base) UnregisterBridgeFD(fd int) error {
	return b.poller.UnregisterFD(fd)
}

// SignalActive implements signal.Host and the reactor's signal_active
// hook from the data model: every Event registered for signum has its
// SignalCallback invoked once per unit of activation multiplicity, capped
// by WithMaxSignalsPerTick if configured. The caller (the signal
// package's drainAndDispatch) already holds Base.Lock for the duration of
// the drain pass, so SignalActive itself does not re-acquire it — only
// the recursive main lock makes that safe for a callback that turns
// around and calls Add/Del.
func (b *Base) SignalActive(signum int, n int) {
	if b.maxSignalPerTick > 0 && n > b.maxSignalPerTick {
		n = b.maxSignalPerTick
	}

	b.mu.Lock()
	list := append([]*Event(nil), b.signalEvents[signum]...)
	b.mu.Unlock()

	for _, ev := range list {
		if ev.SignalCallback == nil {
			continue
		}
		for i := 0; i < n; i++ {
			ev.SignalCallback(signum)
		}
	}
}

// MakeBaseNotifiable equips the Base with a wake mechanism (component G):
// an eventfd on Linux, a self-pipe on Darwin, or (on Windows, where the
// poller already wakes via PostQueuedCompletionStatus) nothing extra at
// all. Idempotent; safe to call more than once.
func (b *Base) MakeBaseNotifiable() error {
	if b.notifiable {
		return nil
	}
	if !isWakeFdSupported() {
		b.notifiable = true
		return nil
	}

	rfd, wfd, err := createWakeFd(0, EFD_CLOEXEC|EFD_NONBLOCK)
	if err != nil {
		return fmt.Errorf("reactor: creating wake fd: %w", err)
	}

	drain := func(IOEvents) {
		var buf [64]byte
		for {
			n, err := readFD(rfd, buf[:])
			if n <= 0 || err != nil {
				return
			}
		}
	}
	if err := b.poller.RegisterFD(rfd, EventRead, drain); err != nil {
		_ = closeWakeFd(rfd, wfd)
		return fmt.Errorf("reactor: registering wake fd: %w", err)
	}

	b.wakeRFd, b.wakeWFd = rfd, wfd
	b.notifiable = true
	return nil
}

// Notify wakes a blocked Run/PollIO, causing it to re-check its state
// instead of waiting out the remainder of its poll timeout. Returns
// ErrWakeUnsupported if MakeBaseNotifiable was never called successfully.
func (b *Base) Notify() error {
	if !b.notifiable {
		return ErrWakeUnsupported
	}
	if isWakeFdSupported() {
		if b.wakeWFd < 0 {
			return ErrWakeUnsupported
		}
		_, err := writeFD(b.wakeWFd, []byte{1})
		return err
	}
	if wp, ok := any(&b.poller).(wakeablePoller); ok {
		return wp.Wakeup()
	}
	return ErrWakeUnsupported
}

// Run drives the reactor until ctx is cancelled or Shutdown is called,
// alternating between StateRunning (dispatching) and StateSleeping
// (blocked in the poller) per FastState's documented state machine. It
// returns ErrAlreadyRunning if the Base is already running, or ErrClosed
// if it has already been shut down.
func (b *Base) Run(ctx context.Context) error {
	if !b.state.TryTransition(StateAwake, StateRunning) {
		switch b.state.Load() {
		case StateRunning, StateSleeping:
			return ErrAlreadyRunning
		default:
			return ErrClosed
		}
	}

	if err := b.MakeBaseNotifiable(); err != nil {
		b.logf(LevelWarn, "poll", "wake mechanism unavailable; context cancellation may be delayed until the next I/O or signal event", err)
	}

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			b.Shutdown()
		case <-stopWatch:
		}
	}()

	for {
		if b.state.Load() == StateTerminating {
			break
		}

		b.state.TryTransition(StateRunning, StateSleeping)
		_, err := b.poller.PollIO(-1)
		b.state.TryTransition(StateSleeping, StateRunning)

		if err != nil {
			if err == ErrPollerClosed {
				break
			}
			b.logf(LevelError, "poll", "poll error", err)
		}

		if b.state.Load() == StateTerminating {
			break
		}
	}

	b.state.TransitionAny([]BaseState{StateRunning, StateSleeping, StateTerminating}, StateTerminated)
	return nil
}

// Shutdown requests that Run return at its next opportunity, waking a
// blocked poll if the Base is notifiable. Safe to call from any
// goroutine, any number of times, whether or not Run has been called.
func (b *Base) Shutdown() {
	b.state.TransitionAny([]BaseState{StateAwake, StateRunning, StateSleeping}, StateTerminating)
	if b.notifiable {
		_ = b.Notify()
	}
}

// Close shuts the Base down and releases its poller, wake mechanism, and
// signal bridge. Idempotent. Per the poller's own contract, callers must
// have already removed every fd Event (via Del) before the underlying
// file descriptors are closed elsewhere.
func (b *Base) Close() error {
	b.closeOnce.Do(func() {
		b.Shutdown()

		if b.bridgeReady {
			if err := b.bridge.Dealloc(); err != nil && b.closeErr == nil {
				b.closeErr = err
			}
		}
		if b.wakeRFd >= 0 {
			if err := closeWakeFd(b.wakeRFd, b.wakeWFd); err != nil && b.closeErr == nil {
				b.closeErr = err
			}
		}
		if err := b.poller.Close(); err != nil && b.closeErr == nil {
			b.closeErr = err
		}
		b.state.Store(StateTerminated)
	})
	return b.closeErr
}
