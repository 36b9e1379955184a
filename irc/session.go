package irc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	ircerr "ircmux/internal/errors"
	"ircmux/internal/metrics"
	"ircmux/util"
)

// Session is one IRC connection: its identity, its handler table, and
// the engine handle it owns exclusively.
//
// A Session is not safe for concurrent use.  Handlers run on the
// goroutine that calls Tick or Scheduler.Tick and may call back into
// the session freely.
type Session struct {
	id       uuid.UUID
	conn     Conn
	handlers Handlers

	nickname string
	username string
	realname string
	host     string
	port     int

	autoReconnect bool
	closed        bool

	log     *util.Logger
	metrics *metrics.Collector
	waiter  Waiter
	set     *Descriptors
}

// NewSession validates handlers and allocates an engine connection.
// It fails with a *ConfigError for an incomplete handler table and a
// *SessionCreationError when the engine cannot allocate a handle.
func NewSession(engine Engine, handlers Handlers, opts ...Option) (*Session, error) {
	if err := handlers.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:       uuid.New(),
		handlers: handlers,
		log:      util.Nop(),
		waiter:   SelectWaiter{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if engine == nil {
		return nil, &ircerr.SessionCreationError{Err: ircerr.New("no engine")}
	}
	conn, err := engine.NewConn(sessionSink{s})
	if err != nil {
		return nil, &ircerr.SessionCreationError{Err: err}
	}
	if conn == nil {
		return nil, &ircerr.SessionCreationError{Err: ircerr.New("engine returned no connection")}
	}
	s.conn = conn
	s.log = s.log.With(s.id.String()[:8])
	s.metrics.SessionOpened()
	return s, nil
}

// ID returns the identifier correlating this session to its engine
// handle.
func (s *Session) ID() uuid.UUID { return s.id }

// Nickname returns the current nickname, tracking self NICK changes.
func (s *Session) Nickname() string { return s.nickname }

// Host returns the server host of the last successful connect.
func (s *Session) Host() string { return s.host }

// Port returns the server port of the last successful connect.
func (s *Session) Port() int { return s.port }

// AutoReconnect reports whether the reconnect policy is enabled.
func (s *Session) AutoReconnect() bool { return s.autoReconnect }

// String renders "nick <host:port>" while connected and
// "unconnected <*:*>" otherwise.
func (s *Session) String() string {
	if s.closed || !s.conn.IsConnected() {
		return "unconnected <*:*>"
	}
	return fmt.Sprintf("%s <%s>", s.nickname, util.FormatAddr(s.host, s.port))
}

// Connect opens the connection and starts registration.  Zero-valued
// port, user and real select DefaultPort, DefaultUser and
// DefaultRealname.  Identity is stored only when the engine accepts the
// connect; otherwise a *ConnectError is returned and the session is
// unchanged.
func (s *Session) Connect(nick, host string, port int, user, real string) error {
	if s.closed {
		return ircerr.Connect(host, port, ircerr.ErrSessionClosed)
	}
	if port == 0 {
		port = DefaultPort
	}
	if user == "" {
		user = DefaultUser
	}
	if real == "" {
		real = DefaultRealname
	}

	if err := s.conn.Connect(host, port, nick, user, real); err != nil {
		s.metrics.RecordError(err.Error())
		return ircerr.Connect(host, port, err)
	}

	s.nickname = nick
	s.username = user
	s.realname = real
	s.host = host
	s.port = port
	s.metrics.Connected()
	s.log.Verbose("connecting to %s as %s", util.FormatAddr(host, port), nick)
	return nil
}

// Quit disables auto-reconnect and sends QUIT with reason, or
// DefaultQuitReason when reason is empty.  A rejected QUIT is logged;
// the policy change stands either way.
func (s *Session) Quit(reason string) {
	s.autoReconnect = false
	if reason == "" {
		reason = DefaultQuitReason
	}
	if err := s.command(CmdQuit, reason); err != nil {
		s.log.Verbose("%v", err)
	}
}

// Join joins channel, using key when it is non-empty.
func (s *Session) Join(channel, key string) error {
	return s.command(CmdJoin, channel, key)
}

// Part leaves channel.
func (s *Session) Part(channel string) error {
	return s.command(CmdPart, channel)
}

// Invite invites nick to channel.
func (s *Session) Invite(nick, channel string) error {
	return s.command(CmdInvite, nick, channel)
}

// Names requests the member list of channel.
func (s *Session) Names(channel string) error {
	return s.command(CmdNames, channel)
}

// Send sends a PRIVMSG to a nick or channel.
func (s *Session) Send(destination, text string) error {
	return s.command(CmdPrivmsg, destination, text)
}

// SendRaw writes line to the server as is.
func (s *Session) SendRaw(line string) error {
	return s.command(CmdRaw, line)
}

// Notice sends a NOTICE to a nick or channel.
func (s *Session) Notice(destination, text string) error {
	return s.command(CmdNotice, destination, text)
}

// Nick requests a nickname change.  The stored nickname follows once
// the server confirms it.
func (s *Session) Nick(newNick string) error {
	return s.command(CmdNick, newNick)
}

// Topic sets the channel topic, or asks for it when topic is empty.
func (s *Session) Topic(channel, topic string) error {
	return s.command(CmdTopic, channel, topic)
}

// Action sends a CTCP ACTION ("/me").
func (s *Session) Action(destination, text string) error {
	return s.command(CmdAction, destination, text)
}

// CTCPRequest sends a CTCP request such as "VERSION".
func (s *Session) CTCPRequest(destination, request string) error {
	return s.command(CmdCTCPRequest, destination, request)
}

// CTCPReply answers a CTCP request.
func (s *Session) CTCPReply(destination, reply string) error {
	return s.command(CmdCTCPReply, destination, reply)
}

func (s *Session) command(cmd Command, args ...string) error {
	if s.closed {
		return ircerr.Command(cmd.String(), ircerr.ErrSessionClosed)
	}
	if err := s.conn.Command(cmd, args...); err != nil {
		s.metrics.RecordError(err.Error())
		return ircerr.Command(cmd.String(), err)
	}
	s.metrics.CommandSent()
	return nil
}

// Tick advances this session alone.  A due reconnect is attempted
// instead of waiting; otherwise the session waits up to timeout for
// its descriptors and processes whatever is ready.  When processing
// fails and leaves the session disconnected with auto-reconnect on, a
// reconnect is attempted before returning.
//
// Only reconnect failures are returned, as *ReconnectError, plus
// ErrSessionClosed after Close.  Other processing failures are logged.
func (s *Session) Tick(timeout time.Duration) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.reconnectDue() {
		return s.reconnect()
	}

	if s.set == nil {
		s.set = NewDescriptors()
	}
	s.set.Reset()
	s.addDescriptors(s.set)

	if err := s.waiter.Wait(s.set, timeout); err != nil {
		werr := &ircerr.WaitError{Err: err}
		s.log.Warn("%v", werr)
		s.metrics.WaitFailed()
		s.metrics.RecordError(werr.Error())
		s.set.clearReady()
	}
	s.metrics.Tick()

	return s.process(s.set)
}

// addDescriptors registers the connection's descriptors in set.  One
// that select cannot hold is reported for this session only.
func (s *Session) addDescriptors(set *Descriptors) {
	s.conn.AddDescriptors(set)
	if err := set.takeErr(); err != nil {
		s.log.Warn("session %s: %v", s.id, err)
		s.metrics.RecordError(err.Error())
	}
}

// process runs ready I/O and applies the post-wait reconnect rule.
func (s *Session) process(set *Descriptors) error {
	err := s.conn.ProcessDescriptors(set)
	if err == nil {
		return nil
	}
	s.log.Verbose("process: %v", err)
	if s.reconnectDue() {
		return s.reconnect()
	}
	return nil
}

// Run ticks until ctx is done or a tick fails.  It returns nil on
// cancellation.  A non-positive timeout selects DefaultTimeout.
func (s *Session) Run(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := s.Tick(timeout); err != nil {
			return err
		}
	}
}

// Close disconnects if needed and destroys the engine handle.  The
// session is unusable afterwards; Close is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.autoReconnect = false
	if s.conn.IsConnected() {
		s.conn.Disconnect()
	}
	s.metrics.SessionClosed()
	return s.conn.Close()
}
