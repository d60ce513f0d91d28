//go:build linux || darwin

// File: sock_test.go
// Author: momentics <momentics@gmail.com>

package unixdgram

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestNewSocketIsNonblockingAndCloexec(t *testing.T) {
	fd, err := newSocket(AF_UNIX, SOCK_DGRAM, 0)
	if err != nil {
		t.Fatalf("newSocket() error: %v", err)
	}
	defer unix.Close(fd)

	fl, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		t.Fatalf("F_GETFL error: %v", err)
	}
	if fl&unix.O_NONBLOCK == 0 {
		t.Error("O_NONBLOCK not set on new descriptor")
	}

	fdfl, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("F_GETFD error: %v", err)
	}
	if fdfl&unix.FD_CLOEXEC == 0 {
		t.Error("FD_CLOEXEC not set on new descriptor")
	}
}

func TestPendingBytesReportsQueuedSize(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		t.Fatalf("Socketpair() error: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	if n, err := pendingBytes(fds[0]); err != nil || n != 0 {
		t.Errorf("pendingBytes on idle socket = (%d, %v), want (0, nil)", n, err)
	}
	if _, err := unix.Write(fds[1], []byte("hello")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	n, err := pendingBytes(fds[0])
	if err != nil {
		t.Fatalf("pendingBytes() error: %v", err)
	}
	if n != 5 {
		t.Errorf("pendingBytes() = %d, want 5", n)
	}
}

func TestBindRejectsOverlongPath(t *testing.T) {
	l, _ := newFakeLoop(t)
	fd, err := l.Socket(AF_UNIX, SOCK_DGRAM, 0, discard)
	if err != nil {
		t.Fatalf("Socket() error: %v", err)
	}
	defer l.Close(fd)

	long := make([]byte, maxSunPath+1)
	for i := range long {
		long[i] = 'x'
	}
	long[0] = '/'
	err = l.Bind(fd, string(long))
	if err == nil {
		t.Fatal("Bind accepted an overlong path")
	}
	if !errors.Is(err, unix.ENAMETOOLONG) {
		t.Errorf("Bind overlong path error = %v, want ENAMETOOLONG", err)
	}
}
