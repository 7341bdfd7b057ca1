//go:build windows

package signal

import (
	"errors"
	"net"
	"syscall"
)

// newSelfPipe emulates a self-pipe on Windows via a loopback TCP pair,
// since Windows has no anonymous, pollable socketpair for
// non-named-pipe file descriptors. This mirrors the upstream note that a
// Windows socketpair failure (e.g. a restrictive localhost firewall
// policy) should warn-and-continue rather than hard-fail the reactor;
// here that means returning an error the caller may choose to log and
// ignore rather than propagate.
func newSelfPipe() (rx, tx int, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, 0, err
	}
	defer ln.Close()

	acceptErr := make(chan error, 1)
	var serverConn net.Conn
	go func() {
		c, err := ln.Accept()
		serverConn = c
		acceptErr <- err
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return 0, 0, err
	}
	if err := <-acceptErr; err != nil {
		clientConn.Close()
		return 0, 0, err
	}

	rxFD, err := connFD(serverConn)
	if err != nil {
		clientConn.Close()
		serverConn.Close()
		return 0, 0, err
	}
	txFD, err := connFD(clientConn)
	if err != nil {
		clientConn.Close()
		serverConn.Close()
		return 0, 0, err
	}
	return rxFD, txFD, nil
}

func connFD(c net.Conn) (int, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return 0, errors.New("signal: connection does not expose a raw fd")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	ctrlErr := raw.Control(func(h uintptr) {
		fd = int(h)
	})
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

func closeSelfPipe(rx, tx int) {
	if rx >= 0 {
		_ = syscall.Closesocket(syscall.Handle(rx))
	}
	if tx >= 0 && tx != rx {
		_ = syscall.Closesocket(syscall.Handle(tx))
	}
}

func writeSelfPipeByte(fd int, b byte) {
	buf := [1]byte{b}
	_, _ = syscall.Write(syscall.Handle(fd), buf[:])
}

func readSelfPipe(fd int, buf []byte) (int, error) {
	return syscall.Read(syscall.Handle(fd), buf)
}

func isRetryable(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
