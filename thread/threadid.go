package thread

import (
	"runtime"
	"strconv"
	"strings"
)

// GoroutineID returns the calling goroutine's numeric id, parsed from the
// runtime stack trace. Go exposes no public goroutine-id API; this is the
// standard (if slightly distasteful) workaround, and is offered as a
// ready-made thread-id provider: SetIDCallback(thread.GoroutineID).
//
// It is not cheap — callers on a hot path should prefer a pre-assigned
// logical id via their own SetIDCallback implementation.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := string(buf[:n])
	s = strings.TrimPrefix(s, "goroutine ")
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		s = s[:idx]
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
