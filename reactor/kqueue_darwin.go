//go:build darwin

// File: reactor/kqueue_darwin.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Darwin kqueue(2) reactor. Level-triggered EVFILT_READ, pipe wakeup.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type kqueueReactor struct {
	kq  int
	rfd int // pipe read end, registered with the kqueue
	wfd int // pipe write end, used by Wake
	raw []unix.Kevent_t
}

// New constructs the kqueue-backed Reactor.
func New() (Reactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue: %w", err)
	}
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		unix.Close(kq)
		return nil, fmt.Errorf("pipe: %w", err)
	}
	rfd, wfd := p[0], p[1]
	_ = unix.SetNonblock(rfd, true)
	_ = unix.SetNonblock(wfd, true)
	unix.CloseOnExec(rfd)
	unix.CloseOnExec(wfd)

	kev := unix.Kevent_t{
		Ident:  uint64(rfd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		unix.Close(rfd)
		unix.Close(wfd)
		unix.Close(kq)
		return nil, fmt.Errorf("kevent add wake pipe: %w", err)
	}
	return &kqueueReactor{kq: kq, rfd: rfd, wfd: wfd}, nil
}

func (r *kqueueReactor) Register(fd int) error {
	kev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD,
	}
	if _, err := unix.Kevent(r.kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		return fmt.Errorf("kevent add: %w", err)
	}
	return nil
}

func (r *kqueueReactor) Unregister(fd int) error {
	kev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_DELETE,
	}
	if _, err := unix.Kevent(r.kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		return fmt.Errorf("kevent delete: %w", err)
	}
	return nil
}

func (r *kqueueReactor) Wait(events []Event) (int, error) {
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.Kevent_t, len(events))
	}
	raw := r.raw[:len(events)]

	var n int
	var err error
	for {
		n, err = unix.Kevent(r.kq, nil, raw, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("kevent wait: %w", err)
		}
		break
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		if fd == r.rfd {
			r.drainWake()
			continue
		}
		events[out] = Event{
			FD:  fd,
			Err: raw[i].Flags&(unix.EV_EOF|unix.EV_ERROR) != 0,
		}
		out++
	}
	return out, nil
}

func (r *kqueueReactor) drainWake() {
	var buf [16]byte
	for {
		if _, err := unix.Read(r.rfd, buf[:]); err != nil {
			return
		}
	}
}

func (r *kqueueReactor) Wake() error {
	var b [1]byte
	b[0] = 1
	_, err := unix.Write(r.wfd, b[:])
	if err == unix.EAGAIN {
		// pipe full, wait is already pending wakeup
		return nil
	}
	return err
}

func (r *kqueueReactor) Close() error {
	unix.Close(r.rfd)
	unix.Close(r.wfd)
	return unix.Close(r.kq)
}
