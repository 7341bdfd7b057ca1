package reactor

import "errors"

// Sentinel errors returned by Base and its collaborators. Grouped by the
// failure class they represent, mirroring the taxonomy a caller needs to
// distinguish configuration mistakes from OS failures from runtime bugs.
var (
	// ErrAlreadyRunning is returned by Run when the base is already active.
	ErrAlreadyRunning = errors.New("reactor: already running")

	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("reactor: base closed")

	// ErrFDOutOfRange is returned when a file descriptor exceeds the
	// poller's direct-indexing capacity.
	ErrFDOutOfRange = errors.New("reactor: fd out of range")

	// ErrFDAlreadyRegistered is returned by Base.Add when the fd already
	// has an active event.
	ErrFDAlreadyRegistered = errors.New("reactor: fd already registered")

	// ErrFDNotRegistered is returned by Base.Del/Base.Modify for an fd with
	// no active event.
	ErrFDNotRegistered = errors.New("reactor: fd not registered")

	// ErrPollerClosed is returned by poller operations after Close.
	ErrPollerClosed = errors.New("reactor: poller closed")

	// ErrNilEvent is returned by Base.Add when passed a nil *Event.
	ErrNilEvent = errors.New("reactor: nil event")

	// ErrWakeUnsupported is returned by Base.Notify when the Base has no
	// wake mechanism available (MakeBaseNotifiable has not succeeded).
	ErrWakeUnsupported = errors.New("reactor: wake mechanism unsupported")
)
