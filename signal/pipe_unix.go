//go:build linux || darwin

package signal

import (
	"golang.org/x/sys/unix"
)

// newSelfPipe creates an anonymous, nonblocking, close-on-exec
// socketpair, the POSIX self-pipe libevent's evsig_init builds via
// socketpair(AF_UNIX, SOCK_STREAM). Per the fixed pipe-endpoint roles
// (design note: tx = pair[0], rx = pair[1]), the first fd is the write
// end the relay writes to and the second is the read end the host polls.
func newSelfPipe() (rx, tx int, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, 0, err
	}
	tx, rx = fds[0], fds[1]

	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			closeSelfPipe(rx, tx)
			return 0, 0, err
		}
		unix.CloseOnExec(fd)
	}
	return rx, tx, nil
}

// closeSelfPipe closes both self-pipe endpoints, ignoring errors, since
// teardown has no useful recovery path for a failed close.
func closeSelfPipe(rx, tx int) {
	if rx >= 0 {
		_ = unix.Close(rx)
	}
	if tx >= 0 && tx != rx {
		_ = unix.Close(tx)
	}
}

// writeSelfPipeByte performs the single, non-blocking write the relay
// goroutine uses in place of bridge_handler's async-signal-safe send.
// Short writes and EAGAIN are ignored by design: the receiver only needs
// to learn that a signal fired, and drainAndDispatch counts actual bytes
// received, not bytes the sender believes it sent.
func writeSelfPipeByte(fd int, b byte) {
	buf := [1]byte{b}
	_, _ = unix.Write(fd, buf[:])
}

// readSelfPipe performs one non-blocking recv, the Go analogue of
// drain_and_dispatch's recv loop body.
func readSelfPipe(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// isRetryable reports whether err is a transient I/O error
// (EINTR/EAGAIN) that drainAndDispatch should treat as "pipe drained for
// now" rather than "fatal."
func isRetryable(err error) bool {
	return err == unix.EAGAIN || err == unix.EINTR || err == unix.EWOULDBLOCK
}
