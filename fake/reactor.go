// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides in-memory test doubles for the reactor interface.
package fake

import (
	"sync"

	"github.com/momentics/unixdgram/reactor"
)

// Reactor is a test double: registrations are recorded, readiness events
// are fired synchronously by the test via Fire.
type Reactor struct {
	mu         sync.Mutex
	registered map[int]bool

	events chan reactor.Event
	wake   chan struct{}
	errs   chan error
	closed bool
}

// New returns an empty fake reactor.
func New() *Reactor {
	return &Reactor{
		registered: make(map[int]bool),
		events:     make(chan reactor.Event, 64),
		wake:       make(chan struct{}, 1),
		errs:       make(chan error, 1),
	}
}

func (f *Reactor) Register(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[fd] = true
	return nil
}

func (f *Reactor) Unregister(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registered, fd)
	return nil
}

func (f *Reactor) Wait(events []reactor.Event) (int, error) {
	select {
	case ev := <-f.events:
		events[0] = ev
		return 1, nil
	case err := <-f.errs:
		return 0, err
	case <-f.wake:
		return 0, nil
	}
}

func (f *Reactor) Wake() error {
	select {
	case f.wake <- struct{}{}:
	default:
	}
	return nil
}

func (f *Reactor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Fire queues a readiness event for fd.
func (f *Reactor) Fire(fd int) {
	f.events <- reactor.Event{FD: fd}
}

// FailWait makes the next Wait return err, simulating a dead reactor.
func (f *Reactor) FailWait(err error) {
	f.errs <- err
}

// Registered reports whether fd is currently watched.
func (f *Reactor) Registered(fd int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[fd]
}

// NumRegistered returns the watched descriptor count.
func (f *Reactor) NumRegistered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered)
}

// Closed reports whether Close was called.
func (f *Reactor) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ reactor.Reactor = (*Reactor)(nil)
