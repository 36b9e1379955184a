package irc

import (
	"strings"

	ircerr "ircmux/internal/errors"
	"ircmux/internal/metrics"
	"ircmux/util"
)

// Connection defaults applied to zero-valued Connect arguments.
const (
	DefaultPort       = 6667
	DefaultUser       = "default-user"
	DefaultRealname   = "default-realname"
	DefaultQuitReason = "bye"
)

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger sets the session logger.  A nil logger keeps the quiet
// default.
func WithLogger(l *util.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a shared metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithWaiter replaces the readiness wait used by Session.Tick.
func WithWaiter(w Waiter) Option {
	return func(s *Session) {
		if w != nil {
			s.waiter = w
		}
	}
}

// WithAutoReconnect sets the initial reconnect policy.
func WithAutoReconnect(enabled bool) Option {
	return func(s *Session) { s.autoReconnect = enabled }
}

// Option names accepted by Session.SetOption.
const (
	OptionDebug         = "debug"
	OptionVerifyPeer    = "verify-peer-certificate"
	OptionAutoReconnect = "auto-reconnect"
)

// SetOption toggles a named option.  "debug" and
// "verify-peer-certificate" are forwarded to the engine;
// "auto-reconnect" only changes the session's reconnect policy.
func (s *Session) SetOption(name string, enabled bool) error {
	switch strings.ToLower(name) {
	case OptionDebug:
		s.conn.SetOption(OptDebug, enabled)
	case OptionVerifyPeer:
		s.conn.SetOption(OptVerifyPeer, enabled)
	case OptionAutoReconnect:
		s.autoReconnect = enabled
	default:
		return &ircerr.ConfigError{Key: name, Message: "unknown option"}
	}
	return nil
}
