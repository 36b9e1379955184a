// Package engine is the protocol engine behind ircmux sessions: it
// dials servers, frames and parses IRC lines, encodes commands, and
// classifies server traffic into the named and numeric events that
// package irc dispatches.
//
// Each live connection has one reader goroutine.  It never touches
// session state; it queues lines and pokes a non-blocking pipe whose
// read end is what the connection registers for readiness.  Decoding
// and dispatch happen in ProcessDescriptors, on the caller's goroutine.
package engine

import (
	"crypto/tls"
	"time"

	"ircmux/internal/metrics"
	"ircmux/internal/retry"
	"ircmux/internal/transport"
	"ircmux/irc"
	"ircmux/util"
)

// Defaults for zero-valued Options fields.
const (
	DefaultDialTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// Options configures an Engine.
type Options struct {
	// Dialer opens server connections.  Nil dials plain TCP.
	Dialer transport.Dialer

	// TLS wraps every connection in TLS.  Peer verification follows the
	// per-connection verify-peer option, which starts enabled.
	TLS       bool
	TLSConfig *tls.Config

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Breaker configures the per-connection dial circuit breaker.  Nil
	// uses retry.DefaultCircuitBreakerConfig.
	Breaker *retry.CircuitBreakerConfig

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Engine implements irc.Engine.
type Engine struct {
	opts Options
}

var _ irc.Engine = (*Engine)(nil)

// New returns an Engine with defaults applied to opts.
func New(opts Options) *Engine {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = &transport.TCPDialer{Timeout: opts.DialTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = util.Nop()
	}
	return &Engine{opts: opts}
}

// NewConn allocates a connection handle reporting to sink.
func (e *Engine) NewConn(sink irc.EventSink) (irc.Conn, error) {
	return newConn(e, sink)
}

// Close releases the dialer, tearing down a shared SSH gateway.
func (e *Engine) Close() error {
	return e.opts.Dialer.Close()
}

// dialer returns the dialer for one connect, adding TLS when enabled.
func (e *Engine) dialer(verifyPeer bool) transport.Dialer {
	if !e.opts.TLS {
		return e.opts.Dialer
	}
	return &transport.TLSDialer{
		Base:               e.opts.Dialer,
		Config:             e.opts.TLSConfig,
		InsecureSkipVerify: !verifyPeer,
	}
}
