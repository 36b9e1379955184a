package irc

import (
	ircerr "ircmux/internal/errors"
	"ircmux/util"
)

// State is the connection state seen by the reconnect policy.
type State int

const (
	Disconnected State = iota
	Connected
)

func (st State) String() string {
	if st == Connected {
		return "connected"
	}
	return "disconnected"
}

// State reports whether the engine currently holds a live connection.
func (s *Session) State() State {
	if !s.closed && s.conn.IsConnected() {
		return Connected
	}
	return Disconnected
}

// reconnectDue reports whether the next tick must reconnect.  There is
// no backoff: every tick that sees a due session tries again.
func (s *Session) reconnectDue() bool {
	return s.autoReconnect && s.State() == Disconnected
}

// reconnect repeats the last successful connect with the stored
// identity, including a nickname changed since then.
func (s *Session) reconnect() error {
	if s.host == "" {
		return &ircerr.ReconnectError{Reason: ircerr.ErrNoIdentity.Error(), Err: ircerr.ErrNoIdentity}
	}

	addr := s.nickname + " <" + util.FormatAddr(s.host, s.port) + ">"
	s.log.Verbose("reconnecting %s", addr)
	s.metrics.Reconnected()

	if err := s.conn.Connect(s.host, s.port, s.nickname, s.username, s.realname); err != nil {
		s.metrics.RecordError(err.Error())
		return ircerr.Reconnect(addr, err)
	}
	return nil
}
