//go:build darwin

// File: sock_darwin.go
// Author: momentics <momentics@gmail.com>
//
// Darwin lacks SOCK_NONBLOCK/SOCK_CLOEXEC, so both flags are applied right
// after creation, before the descriptor escapes.

package unixdgram

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func newSocket(domain, typ, proto int) (int, error) {
	fd, err := unix.Socket(domain, typ, proto)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

// pendingBytes reports how many bytes the next read would return without
// blocking. x/sys does not export FIONREAD for darwin; syscall does.
func pendingBytes(fd int) (int, error) {
	return unix.IoctlGetInt(fd, syscall.FIONREAD)
}
