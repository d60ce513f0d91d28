// File: loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event loop facade: watcher registry, task queue, readiness dispatch.

package unixdgram

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/unixdgram/reactor"
)

// Handler receives the outcome of one readiness event: the datagram payload
// and the sender's bound path, or a non-nil error if the pending-size query
// or the receive failed. A zero-length datagram is delivered as an empty,
// non-nil payload with a nil error. from is empty when the sender is unbound.
//
// Handlers run on the loop goroutine and must not block.
type Handler func(payload []byte, from string, err error)

// socketContext ties a live descriptor to its handler for as long as the
// readiness watcher is registered.
type socketContext struct {
	fd      int
	handler Handler
}

// Loop owns one reactor and the registry mapping each watched descriptor to
// its socketContext. All registry mutation happens on the loop goroutine;
// Socket, Bind, Send and Close must be called there, either before Run or
// via Submit.
type Loop struct {
	r        reactor.Reactor
	watchers map[int]*socketContext

	mu    sync.Mutex // guards tasks; queue.Queue is not goroutine-safe
	tasks *queue.Queue

	maxEvents int
	onPanic   func(v any)

	started  atomic.Bool
	closed   atomic.Bool
	torndown atomic.Bool
	done     chan struct{}
}

// NewLoop builds a Loop with the platform reactor unless one is injected
// via WithReactor.
func NewLoop(opts ...Option) (*Loop, error) {
	l := &Loop{
		watchers:  make(map[int]*socketContext),
		tasks:     queue.New(),
		maxEvents: DefaultMaxEvents,
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if l.r == nil {
		r, err := reactor.New()
		if err != nil {
			return nil, fmt.Errorf("unixdgram: %w", err)
		}
		l.r = r
	}
	return l, nil
}

// Run drives the event loop until Shutdown. It blocks the calling goroutine;
// that goroutine becomes the loop goroutine.
func (l *Loop) Run() error {
	if !l.started.CompareAndSwap(false, true) {
		if l.closed.Load() {
			return ErrLoopClosed
		}
		return ErrLoopRunning
	}
	defer close(l.done)
	defer l.teardown()
	if l.closed.Load() {
		return ErrLoopClosed
	}

	events := make([]reactor.Event, l.maxEvents)
	for {
		l.drainTasks()
		if l.closed.Load() {
			return nil
		}
		n, err := l.r.Wait(events)
		if err != nil {
			// the loop is dead; Submit must start refusing work
			l.closed.Store(true)
			return err
		}
		for i := 0; i < n; i++ {
			l.dispatch(events[i])
		}
	}
}

// Shutdown stops the loop, closes every still-registered descriptor and
// releases the reactor. Idempotent. Must not be called from the loop
// goroutine (it waits for Run to return).
func (l *Loop) Shutdown() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = l.r.Wake()
	if l.started.Load() {
		<-l.done
	} else {
		l.teardown()
	}
	return nil
}

// Submit schedules fn to run on the loop goroutine, after the current poll
// round. Tasks run in submission order. This is the only supported way to
// reach the loop from another goroutine.
func (l *Loop) Submit(fn func()) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	l.mu.Lock()
	l.tasks.Add(fn)
	l.mu.Unlock()
	return l.r.Wake()
}

// Watching reports the number of registered watchers. Diagnostic; loop
// goroutine only.
func (l *Loop) Watching() int {
	return len(l.watchers)
}

func (l *Loop) drainTasks() {
	for {
		l.mu.Lock()
		if l.tasks.Length() == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks.Remove().(func())
		l.mu.Unlock()
		fn()
	}
}

// register inserts the descriptor into the registry and starts its watcher.
// A duplicate descriptor is a caller bug and panics; a reactor failure is
// environmental and returned.
func (l *Loop) register(fd int, h Handler) error {
	if _, dup := l.watchers[fd]; dup {
		panic(fmt.Sprintf("unixdgram: descriptor %d already registered", fd))
	}
	if err := l.r.Register(fd); err != nil {
		return err
	}
	l.watchers[fd] = &socketContext{fd: fd, handler: h}
	return nil
}

// deregister stops the watcher and releases the handler reference. Panics if
// the descriptor is not registered.
func (l *Loop) deregister(fd int) {
	sc, ok := l.watchers[fd]
	if !ok {
		panic(fmt.Sprintf("unixdgram: descriptor %d is not registered", fd))
	}
	_ = l.r.Unregister(fd)
	sc.handler = nil
	delete(l.watchers, fd)
}

// dispatch handles one readiness event: query the exact pending size,
// receive into an exactly-sized buffer, and invoke the handler once with
// the outcome. Registry state is final before the handler runs, so a
// misbehaving handler cannot corrupt loop bookkeeping.
func (l *Loop) dispatch(ev reactor.Event) {
	sc, ok := l.watchers[ev.FD]
	if !ok {
		// closed by an earlier task or event in this round
		return
	}
	payload, from, err := recvPending(ev.FD)
	if err != nil && errors.Is(err, unix.EAGAIN) {
		// spurious wakeup, nothing queued
		return
	}
	l.invoke(sc.handler, payload, from, err)
}

func (l *Loop) invoke(h Handler, payload []byte, from string, err error) {
	defer func() {
		if v := recover(); v != nil {
			if l.onPanic != nil {
				l.onPanic(v)
				return
			}
			panic(v)
		}
	}()
	h(payload, from, err)
}

// teardown closes every still-registered descriptor exactly once and
// releases the reactor. Runs on the loop goroutine when Run was started;
// the CAS keeps a Run/Shutdown interleaving from tearing down twice.
func (l *Loop) teardown() {
	if !l.torndown.CompareAndSwap(false, true) {
		return
	}
	fds := make([]int, 0, len(l.watchers))
	for fd := range l.watchers {
		fds = append(fds, fd)
	}
	for _, fd := range fds {
		l.deregister(fd)
		_ = closeRetry(fd)
	}
	_ = l.r.Close()
}
