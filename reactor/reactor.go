// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness reactor interface for Unix datagram descriptors.

package reactor

// Event describes one readiness notification returned by Wait.
type Event struct {
	FD  int  // ready file descriptor
	Err bool // kernel reported an error or hangup condition alongside readability
}

// Reactor watches registered descriptors for read-readiness.
//
// Registration is level-triggered: a descriptor stays ready as long as at
// least one datagram is queued on it. Callers consume one datagram per event
// and rely on the kernel re-reporting readiness for the rest.
type Reactor interface {
	// Register adds a descriptor to the watch set for read-readiness.
	Register(fd int) error

	// Unregister removes a descriptor from the watch set.
	Unregister(fd int) error

	// Wait blocks until readiness events arrive or Wake is called, and
	// fills events with up to len(events) notifications. A return of
	// (0, nil) means the wait was interrupted by Wake.
	Wait(events []Event) (n int, err error)

	// Wake interrupts a concurrent Wait. Safe to call from any goroutine.
	Wake() error

	// Close releases the reactor's kernel resources. Descriptors still
	// registered are not closed; they merely stop being watched.
	Close() error
}
