// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package unixdgram bridges AF_UNIX SOCK_DGRAM sockets to a readiness-driven
// event loop. It creates non-blocking, close-on-exec datagram descriptors,
// binds them to filesystem paths, sends whole datagrams, and delivers each
// received datagram to a per-socket handler from a single loop goroutine.
//
// A Loop owns the watcher registry: every live descriptor created through
// Socket has exactly one readiness watcher and one handler, released when
// Close tears the descriptor down. The loop is single-threaded by contract;
// Submit is the only cross-goroutine entry point.
package unixdgram
