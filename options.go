// File: options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for Loop construction.

package unixdgram

import "github.com/momentics/unixdgram/reactor"

// DefaultMaxEvents is the readiness batch size per reactor wait.
const DefaultMaxEvents = 128

// Option customizes Loop initialization.
type Option func(*Loop)

// WithMaxEvents overrides the per-wait readiness batch size.
func WithMaxEvents(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxEvents = n
		}
	}
}

// WithPanicHandler routes handler panics to fn instead of re-panicking on
// the loop goroutine.
func WithPanicHandler(fn func(v any)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// WithReactor substitutes the platform reactor, primarily for tests.
func WithReactor(r reactor.Reactor) Option {
	return func(l *Loop) {
		l.r = r
	}
}
