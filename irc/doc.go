// Package irc is an embeddable IRC client session manager.
//
// A host creates one [Session] per server connection, supplying a
// [Handlers] table, and drives every session from a single goroutine
// with [Scheduler.Tick] (or [Session.Tick] for a lone session).  Each
// tick reconnects sessions that dropped while auto-reconnect is on,
// waits once for I/O readiness across all of them, and lets the
// protocol engine decode traffic into events that are dispatched to
// the handlers inline.
//
// Architecture (bottom → top):
//
//	Engine/Conn  →  dispatcher  →  Session  →  reconnect policy  →  Scheduler
//
// Wire framing, sockets, and command encoding belong to the [Engine];
// the package ships no engine of its own (see package ircmux/engine).
//
// Nothing in this package starts goroutines or takes locks.  Handlers
// run on the ticking goroutine and must not block.
package irc

// Version identifies the session manager release.
const Version = "ircmux 1.0.0"
