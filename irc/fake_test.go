package irc

import (
	"testing"
	"time"
)

// ── Fake engine ──────────────────────────────────────────────────────

type fakeEngine struct {
	err   error
	conns []*fakeConn
}

func (e *fakeEngine) NewConn(sink EventSink) (Conn, error) {
	if e.err != nil {
		return nil, e.err
	}
	c := &fakeConn{sink: sink, fd: 3 + len(e.conns), options: map[EngineOption]bool{}}
	e.conns = append(e.conns, c)
	return c, nil
}

type connectCall struct {
	host             string
	port             int
	nick, user, real string
}

type commandCall struct {
	cmd  Command
	args []string
}

type fakeConn struct {
	sink EventSink
	fd   int

	connected   bool
	connectErr  error
	connects    []connectCall
	disconnects int
	closed      bool

	commandErr error
	commands   []commandCall

	// processErr drops the connection on the next ProcessDescriptors.
	processErr error
	processed  int
	onProcess  func(sink EventSink)

	options map[EngineOption]bool
}

func (c *fakeConn) Connect(host string, port int, nick, user, real string) error {
	c.connects = append(c.connects, connectCall{host, port, nick, user, real})
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeConn) Disconnect() {
	c.disconnects++
	c.connected = false
}

func (c *fakeConn) IsConnected() bool { return c.connected }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) Command(cmd Command, args ...string) error {
	c.commands = append(c.commands, commandCall{cmd, args})
	return c.commandErr
}

func (c *fakeConn) AddDescriptors(set *Descriptors) {
	if c.connected {
		set.AddRead(c.fd)
	}
}

func (c *fakeConn) ProcessDescriptors(set *Descriptors) error {
	c.processed++
	if c.onProcess != nil {
		c.onProcess(c.sink)
	}
	if c.processErr != nil {
		err := c.processErr
		c.processErr = nil
		c.connected = false
		return err
	}
	return nil
}

func (c *fakeConn) SetOption(opt EngineOption, enabled bool) {
	c.options[opt] = enabled
}

// drop simulates the server closing the connection.
func (c *fakeConn) drop() { c.connected = false }

// ── Fake waiter ──────────────────────────────────────────────────────

type fakeWaiter struct {
	err      error
	calls    int
	maxSeen  []int
	timeouts []time.Duration
	onWait   func()
}

func (w *fakeWaiter) Wait(set *Descriptors, timeout time.Duration) error {
	w.calls++
	w.maxSeen = append(w.maxSeen, set.Max())
	w.timeouts = append(w.timeouts, timeout)
	if w.onWait != nil {
		w.onWait()
	}
	return w.err
}

// ── Helpers ──────────────────────────────────────────────────────────

func minimalHandlers() Handlers {
	return Handlers{
		Connect: func(*Session) {},
		Numeric: func(*Session, uint, ...string) {},
	}
}

func newTestSession(t *testing.T, h Handlers, opts ...Option) (*Session, *fakeConn) {
	t.Helper()
	e := &fakeEngine{}
	opts = append([]Option{WithWaiter(&fakeWaiter{})}, opts...)
	s, err := NewSession(e, h, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, e.conns[0]
}

func connectedSession(t *testing.T, h Handlers, opts ...Option) (*Session, *fakeConn) {
	t.Helper()
	s, c := newTestSession(t, h, opts...)
	if err := s.Connect("bob", "irc.example.org", 6667, "", ""); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return s, c
}

type call struct {
	name string
	args []string
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
