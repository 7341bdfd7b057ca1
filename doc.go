// Package reactor provides a minimal priority event base: I/O readiness
// notification, a pluggable recursive main lock, and the hooks the signal
// and thread packages attach to.
//
// # Architecture
//
// [Base] owns a platform poller and a wake mechanism, dispatching [Event]
// callbacks in the order the poller reports them ready. [Event.Priority]
// is carried as metadata only; dispatch order does not depend on it, and
// the signal bridge's internal event is dispatched alongside ordinary I/O.
// Events are plain data ([Event.FD], [Event.Mask], [Event.Priority],
// [Event.Callback]) assigned once and added/removed any number of times,
// mirroring libevent's event_assign/event_add/event_del split.
//
// # Platform Support
//
// I/O polling uses platform-native mechanisms:
//   - Linux: epoll, wake via eventfd
//   - Darwin: kqueue, wake via a self-pipe (pipe(2))
//   - Windows: IOCP, wake via PostQueuedCompletionStatus
//
// # Thread Safety
//
// [Base.Lock] and [Base.Unlock] are the reactor's main lock, held while the
// signal bridge dispatches a drained batch. They are built on the
// pluggable lock vtable in the sibling thread package rather than a bare
// mutex, so callers that install debug locking see reactor-internal
// locking too. The event tables behind [Base.Add], [Base.Del] and
// [Base.Modify] are guarded by a separate internal mutex, not by the main
// lock, so those methods are safe to call from any goroutine; callbacks
// run on the reactor's own goroutine.
//
// # Usage
//
//	base, err := reactor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer base.Close()
//
//	base.Add(&reactor.Event{
//	    FD:       fd,
//	    Mask:     reactor.EventRead | reactor.EventPersist,
//	    Priority: 0,
//	    Callback: func(reactor.IOEvents) { ... },
//	})
//
//	if err := base.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package reactor
