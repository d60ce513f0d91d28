// File: errors.go
// Author: momentics <momentics@gmail.com>
//
// Loop-level error values. Syscall failures are returned wrapped so that
// errors.Is matches the underlying unix.Errno.

package unixdgram

import "errors"

var (
	// ErrLoopClosed is returned by Submit and Run after Shutdown.
	ErrLoopClosed = errors.New("unixdgram: loop is closed")

	// ErrLoopRunning is returned by a second concurrent Run call.
	ErrLoopRunning = errors.New("unixdgram: loop already running")
)
