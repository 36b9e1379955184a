package irc

import ircerr "ircmux/internal/errors"

// Error types returned by this package.  Use errors.As to inspect them.
type (
	ConfigError          = ircerr.ConfigError
	SessionCreationError = ircerr.SessionCreationError
	ConnectError         = ircerr.ConnectError
	ReconnectError       = ircerr.ReconnectError
	CommandError         = ircerr.CommandError
	WaitError            = ircerr.WaitError
)

var (
	// ErrNotConnected is what engines report for I/O on a dead handle.
	ErrNotConnected = ircerr.ErrNotConnected

	// ErrNoIdentity is wrapped by a ReconnectError for a session that
	// never connected successfully.
	ErrNoIdentity = ircerr.ErrNoIdentity

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = ircerr.ErrSessionClosed
)
