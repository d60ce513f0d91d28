//go:build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7) reactor. Level-triggered read-readiness, eventfd wakeup.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type epollReactor struct {
	epfd int
	wfd  int // eventfd used by Wake
	raw  []unix.EpollEvent
}

// New constructs the epoll-backed Reactor.
func New() (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wfd, ev); err != nil {
		unix.Close(wfd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return &epollReactor{epfd: epfd, wfd: wfd}, nil
}

func (r *epollReactor) Register(fd int) error {
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

func (r *epollReactor) Unregister(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (r *epollReactor) Wait(events []Event) (int, error) {
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]

	var n int
	var err error
	for {
		n, err = unix.EpollWait(r.epfd, raw, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("epoll wait: %w", err)
		}
		break
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == r.wfd {
			r.drainWake()
			continue
		}
		events[out] = Event{
			FD:  fd,
			Err: raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
		out++
	}
	return out, nil
}

func (r *epollReactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wfd, buf[:]); err != nil {
			return
		}
	}
}

func (r *epollReactor) Wake() error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(r.wfd, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, wait is already pending wakeup
		return nil
	}
	return err
}

func (r *epollReactor) Close() error {
	unix.Close(r.wfd)
	return unix.Close(r.epfd)
}
