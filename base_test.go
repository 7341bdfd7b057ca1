//go:build linux

package reactor

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/joeycumines/go-eventloop/thread"
	"github.com/stretchr/testify/require"
)

func newTestBase(t *testing.T) *Base {
	t.Helper()
	b, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestAddNilEvent(t *testing.T) {
	b := newTestBase(t)
	require.ErrorIs(t, b.Add(nil), ErrNilEvent)
}

func TestAddEventMissingCallback(t *testing.T) {
	b := newTestBase(t)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = b.Add(&Event{FD: int(r.Fd()), Mask: EventRead})
	require.ErrorIs(t, err, ErrNilEvent)
}

func TestAddSignalEventMissingSignalCallback(t *testing.T) {
	b := newTestBase(t)
	err := b.Add(&Event{Mask: EventSignal, Signal: int(syscall.SIGUSR1)})
	require.ErrorIs(t, err, ErrNilEvent)
}

// TestAddIODuplicateFD covers Add's fd-uniqueness invariant.
func TestAddIODuplicateFD(t *testing.T) {
	b := newTestBase(t)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fd := int(r.Fd())
	ev1 := &Event{FD: fd, Mask: EventRead, Callback: func(IOEvents) {}}
	require.NoError(t, b.Add(ev1))
	defer b.Del(ev1)

	ev2 := &Event{FD: fd, Mask: EventRead, Callback: func(IOEvents) {}}
	require.ErrorIs(t, b.Add(ev2), ErrFDAlreadyRegistered)
}

// TestDelUnregisteredFD covers Del's error path for an fd never added.
func TestDelUnregisteredFD(t *testing.T) {
	b := newTestBase(t)
	err := b.Del(&Event{FD: 99999, Mask: EventRead, Callback: func(IOEvents) {}})
	require.ErrorIs(t, err, ErrFDNotRegistered)
}

// TestIOEventEndToEnd exercises Add/Run/Del for a plain read event: a
// byte written to one end of a pipe fires the Event's Callback once Run
// is driving the reactor.
func TestIOEventEndToEnd(t *testing.T) {
	b := newTestBase(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	var fired atomic.Bool
	ev := &Event{
		FD:   int(r.Fd()),
		Mask: EventRead,
		Callback: func(events IOEvents) {
			var buf [1]byte
			r.Read(buf[:])
			fired.Store(true)
		},
	}
	require.NoError(t, b.Add(ev))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	_, err = w.Write([]byte{1})
	require.NoError(t, err)

	require.Eventually(t, fired.Load, 2*time.Second, 5*time.Millisecond)

	b.Shutdown()
	require.NoError(t, <-done)
}

// TestSignalEventEndToEnd covers S1 at the reactor layer: a registered
// signal event's SignalCallback fires when the process receives that
// signal while Run is driving the loop.
func TestSignalEventEndToEnd(t *testing.T) {
	b := newTestBase(t)

	var count atomic.Int32
	ev := &Event{
		Mask:   EventSignal,
		Signal: int(syscall.SIGUSR1),
		SignalCallback: func(signum int) {
			count.Add(1)
		},
	}
	require.NoError(t, b.Add(ev))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	require.Eventually(t, func() bool { return count.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, b.Del(ev))
	b.Shutdown()
	require.NoError(t, <-done)
}

// TestMaxSignalsPerTickCaps covers WithMaxSignalsPerTick: a burst of
// raises before the reactor ever drains must invoke SignalCallback at
// most the configured cap, not once per raw OS delivery.
func TestMaxSignalsPerTickCaps(t *testing.T) {
	b, err := New(WithMaxSignalsPerTick(2))
	require.NoError(t, err)
	defer b.Close()

	var count atomic.Int32
	ev := &Event{
		Mask:   EventSignal,
		Signal: int(syscall.SIGUSR2),
		SignalCallback: func(signum int) {
			count.Add(1)
		},
	}
	require.NoError(t, b.Add(ev))

	for i := 0; i < 50; i++ {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR2))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return count.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.LessOrEqual(t, count.Load(), int32(2))

	b.Shutdown()
	require.NoError(t, <-done)
}

// TestRunAlreadyRunning covers Run's re-entrancy guard.
func TestRunAlreadyRunning(t *testing.T) {
	b := newTestBase(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	require.Eventually(t, func() bool { return b.state.Load() != StateAwake }, time.Second, time.Millisecond)

	require.ErrorIs(t, b.Run(context.Background()), ErrAlreadyRunning)

	b.Shutdown()
	require.NoError(t, <-done)
}

// TestCloseIdempotent covers Close being safe to call more than once and
// before Run was ever called.
func TestCloseIdempotent(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

// TestNotifyWakesBlockedRun covers Notify succeeding once Run has made the
// Base notifiable.
func TestNotifyWakesBlockedRun(t *testing.T) {
	b := newTestBase(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return b.notifiable }, time.Second, time.Millisecond)
	require.NoError(t, b.Notify())

	b.Shutdown()
	require.NoError(t, <-done)
}

// TestWithLockDebuggingPanicsOnMisuse verifies that creating a Base with
// WithLockDebugging actually wires the thread package's debug lock
// wrapper underneath Base.Lock/Unlock — unlocking a recursive lock from
// the wrong goroutine must panic, not silently succeed.
func TestWithLockDebuggingPanicsOnMisuse(t *testing.T) {
	require.NoError(t, thread.UsePosixThreads())

	b, err := New(WithLockDebugging(true))
	require.NoError(t, err)
	defer b.Close()

	b.Lock()

	panicked := make(chan bool, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { panicked <- recover() != nil }()
		b.Unlock()
	}()
	<-done
	require.True(t, <-panicked, "unlocking from a different goroutine must panic under debug mode")

	b.Unlock() // the real holder can still unlock cleanly afterward.
}
