// File: socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket lifecycle and datagram I/O over AF_UNIX SOCK_DGRAM descriptors.

package unixdgram

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Address-family and socket-type values re-exported for callers.
const (
	AF_UNIX    = unix.AF_UNIX
	SOCK_DGRAM = unix.SOCK_DGRAM
)

// maxSunPath is the longest path that fits sun_path with its trailing NUL.
var maxSunPath = len(unix.RawSockaddrUnix{}.Path) - 1

// Socket creates a datagram socket and registers a readiness watcher bound
// to h. The descriptor is forced non-blocking and close-on-exec before any
// other component can observe it. On failure no watcher is registered and
// -1 is returned with the error. A nil handler is a caller bug.
//
// Loop goroutine only.
func (l *Loop) Socket(domain, typ, proto int, h Handler) (int, error) {
	if h == nil {
		panic("unixdgram: nil handler")
	}
	fd, err := newSocket(domain, typ, proto)
	if err != nil {
		return -1, fmt.Errorf("socket create: %w", err)
	}
	if err := l.register(fd, h); err != nil {
		_ = closeRetry(fd)
		return -1, fmt.Errorf("watch descriptor %d: %w", fd, err)
	}
	return fd, nil
}

// Bind associates the descriptor with a filesystem path. Paths longer than
// sun_path fail with ENAMETOOLONG before the syscall is issued. Bind is not
// idempotent: rebinding a bound descriptor surfaces the kernel's error.
// Watcher state is untouched.
func (l *Loop) Bind(fd int, path string) error {
	if len(path) > maxSunPath {
		return fmt.Errorf("bind %q: %w", path, unix.ENAMETOOLONG)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		return fmt.Errorf("bind %q: %w", path, err)
	}
	return nil
}

// Send transmits p as one datagram addressed to path. It never blocks (the
// descriptor is non-blocking) and never touches the watcher registry.
// Returns the byte count accepted by the kernel, or -1 and the error.
// Sub-ranges are expressed by slicing p; an out-of-range slice panics.
func (l *Loop) Send(fd int, p []byte, path string) (int, error) {
	if len(path) > maxSunPath {
		return -1, fmt.Errorf("send to %q: %w", path, unix.ENAMETOOLONG)
	}
	n, err := unix.SendmsgN(fd, p, nil, &unix.SockaddrUnix{Name: path}, 0)
	if err != nil {
		return -1, fmt.Errorf("send to %q: %w", path, err)
	}
	return n, nil
}

// Close tears the descriptor down: the watcher and handler reference are
// released first, then close(2) runs with an EINTR retry. The registry entry
// is gone regardless of the close outcome. Closing a descriptor this Loop
// does not watch is a caller bug and panics.
//
// Loop goroutine only.
func (l *Loop) Close(fd int) error {
	l.deregister(fd)
	if err := closeRetry(fd); err != nil {
		return fmt.Errorf("close descriptor %d: %w", fd, err)
	}
	return nil
}

// closeRetry retries close(2) for as long as it is interrupted by a signal.
func closeRetry(fd int) error {
	for {
		err := unix.Close(fd)
		if err != unix.EINTR {
			return err
		}
	}
}

// recvPending performs the readiness algorithm for one datagram: exact
// pending size via the platform's queue-size ioctl, a buffer of exactly
// that size, one recvmsg capturing the sender. Size zero is a legitimate
// empty datagram.
func recvPending(fd int) ([]byte, string, error) {
	size, err := pendingBytes(fd)
	if err != nil {
		return nil, "", fmt.Errorf("pending size of descriptor %d: %w", fd, err)
	}
	buf := make([]byte, size)
	n, _, _, from, err := unix.Recvmsg(fd, buf, nil, 0)
	if err != nil {
		return nil, "", fmt.Errorf("recvmsg on descriptor %d: %w", fd, err)
	}
	var name string
	if ua, ok := from.(*unix.SockaddrUnix); ok {
		name = ua.Name
	}
	return buf[:n], name, nil
}
