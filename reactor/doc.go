// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness-notification reactor abstraction
// and its platform implementations: epoll(7) on Linux and kqueue(2) on
// Darwin. The reactor reports read-readiness for registered descriptors and
// supports cross-goroutine wakeup of a blocked wait.
package reactor
