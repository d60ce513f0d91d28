//go:build linux

// File: sock_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux descriptor creation: non-blocking and close-on-exec are set
// atomically by the socket(2) type flags.

package unixdgram

import "golang.org/x/sys/unix"

func newSocket(domain, typ, proto int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
}

// pendingBytes reports how many bytes the next read would return without
// blocking. TIOCINQ is Linux's spelling of FIONREAD (0x541B); x/sys does
// not export the latter name.
func pendingBytes(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCINQ)
}
