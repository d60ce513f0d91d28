//go:build linux || darwin

// File: registry_test.go
// Author: momentics <momentics@gmail.com>
//
// Watcher-registry lifecycle invariants, exercised against the fake reactor.

package unixdgram

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/unixdgram/fake"
	"github.com/momentics/unixdgram/reactor"
)

func discard(payload []byte, from string, err error) {}

func newFakeLoop(t *testing.T) (*Loop, *fake.Reactor) {
	t.Helper()
	r := fake.New()
	l, err := NewLoop(WithReactor(r))
	if err != nil {
		t.Fatalf("NewLoop() error: %v", err)
	}
	return l, r
}

func TestSocketRegistersWatcherExactlyOnce(t *testing.T) {
	l, r := newFakeLoop(t)
	fd, err := l.Socket(AF_UNIX, SOCK_DGRAM, 0, discard)
	if err != nil {
		t.Fatalf("Socket() error: %v", err)
	}
	defer l.Close(fd)

	if got := l.Watching(); got != 1 {
		t.Errorf("Watching() = %d, want 1", got)
	}
	if !r.Registered(fd) {
		t.Errorf("descriptor %d not registered with reactor", fd)
	}
	if r.NumRegistered() != 1 {
		t.Errorf("reactor has %d registrations, want 1", r.NumRegistered())
	}
}

func TestCloseRemovesWatcher(t *testing.T) {
	l, r := newFakeLoop(t)
	fd, err := l.Socket(AF_UNIX, SOCK_DGRAM, 0, discard)
	if err != nil {
		t.Fatalf("Socket() error: %v", err)
	}
	if err := l.Close(fd); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got := l.Watching(); got != 0 {
		t.Errorf("Watching() = %d after Close, want 0", got)
	}
	if r.Registered(fd) {
		t.Errorf("descriptor %d still registered with reactor after Close", fd)
	}
}

func TestCloseUnknownDescriptorPanics(t *testing.T) {
	l, _ := newFakeLoop(t)
	defer func() {
		if recover() == nil {
			t.Fatal("Close of an unregistered descriptor did not panic")
		}
	}()
	_ = l.Close(12345)
}

func TestDoubleRegisterPanics(t *testing.T) {
	l, _ := newFakeLoop(t)
	if err := l.register(7, discard); err != nil {
		t.Fatalf("register() error: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("second register of the same descriptor did not panic")
		}
	}()
	_ = l.register(7, discard)
}

func TestNilHandlerPanics(t *testing.T) {
	l, _ := newFakeLoop(t)
	defer func() {
		if recover() == nil {
			t.Fatal("Socket with nil handler did not panic")
		}
	}()
	_, _ = l.Socket(AF_UNIX, SOCK_DGRAM, 0, nil)
}

func TestImmediateCloseNeverInvokesHandler(t *testing.T) {
	l, _ := newFakeLoop(t)
	calls := 0
	fd, err := l.Socket(AF_UNIX, SOCK_DGRAM, 0, func([]byte, string, error) { calls++ })
	if err != nil {
		t.Fatalf("Socket() error: %v", err)
	}
	if err := l.Close(fd); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if calls != 0 {
		t.Errorf("handler invoked %d times, want 0", calls)
	}
	if got := l.Watching(); got != 0 {
		t.Errorf("Watching() = %d, want 0", got)
	}
}

func TestDispatchSkipsClosedDescriptor(t *testing.T) {
	l, _ := newFakeLoop(t)
	calls := 0
	fd, err := l.Socket(AF_UNIX, SOCK_DGRAM, 0, func([]byte, string, error) { calls++ })
	if err != nil {
		t.Fatalf("Socket() error: %v", err)
	}
	if err := l.Close(fd); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	// a readiness event that raced with Close must be dropped, not dispatched
	l.dispatch(reactor.Event{FD: fd})
	if calls != 0 {
		t.Errorf("handler invoked %d times for a closed descriptor, want 0", calls)
	}
}

func TestShutdownTearsDownRemainingDescriptors(t *testing.T) {
	l, r := newFakeLoop(t)
	fd, err := l.Socket(AF_UNIX, SOCK_DGRAM, 0, discard)
	if err != nil {
		t.Fatalf("Socket() error: %v", err)
	}
	if err := l.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if got := l.Watching(); got != 0 {
		t.Errorf("Watching() = %d after Shutdown, want 0", got)
	}
	if !r.Closed() {
		t.Error("reactor not closed by Shutdown")
	}
	// descriptor must be closed for real
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != unix.EBADF {
		t.Errorf("FcntlInt(F_GETFD) after Shutdown = %v, want EBADF", err)
	}
	// idempotent
	if err := l.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error: %v", err)
	}
}

func TestWaitFailureClosesLoop(t *testing.T) {
	l, r := newFakeLoop(t)
	runErr := make(chan error, 1)
	go func() { runErr <- l.Run() }()

	boom := errors.New("wait failed")
	r.FailWait(boom)

	select {
	case err := <-runErr:
		if err != boom {
			t.Errorf("Run() = %v, want the injected wait error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return within 5s of the wait failure")
	}
	if err := l.Submit(func() {}); err != ErrLoopClosed {
		t.Errorf("Submit after wait failure = %v, want ErrLoopClosed", err)
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	l, _ := newFakeLoop(t)
	if err := l.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := l.Submit(func() {}); err != ErrLoopClosed {
		t.Errorf("Submit after Shutdown = %v, want ErrLoopClosed", err)
	}
	if err := l.Run(); err != ErrLoopClosed {
		t.Errorf("Run after Shutdown = %v, want ErrLoopClosed", err)
	}
}
