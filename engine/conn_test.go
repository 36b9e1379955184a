package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	ircerr "ircmux/internal/errors"
	"ircmux/internal/metrics"
	"ircmux/internal/retry"
	"ircmux/irc"
)

// ── Fake IRC server ──────────────────────────────────────────────────

type fakeServer struct {
	ln    net.Listener
	conns chan *serverConn
}

type serverConn struct {
	net.Conn
	r *bufio.Reader
}

func startServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{ln: ln, conns: make(chan *serverConn, 4)}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			s.conns <- &serverConn{Conn: c, r: bufio.NewReader(c)}
		}
	}()
	return s
}

func (s *fakeServer) hostPort(t *testing.T) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func (s *fakeServer) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case c := <-s.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a client")
		return nil
	}
}

func (c *serverConn) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if _, err := fmt.Fprintf(c, "%s\r\n", l); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
}

func (c *serverConn) expect(t *testing.T, want string) {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	line, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatalf("server read: %v (wanted %q)", err, want)
	}
	if got := strings.TrimRight(line, "\r\n"); got != want {
		t.Fatalf("server got %q, want %q", got, want)
	}
}

// ── Helpers ──────────────────────────────────────────────────────────

type recorder struct {
	connects int
	numerics []uint
	events   []string
	args     map[string][]string
}

func (r *recorder) handlers() irc.Handlers {
	r.args = map[string][]string{}
	return irc.Handlers{
		Connect: func(*irc.Session) { r.connects++ },
		Numeric: func(_ *irc.Session, code uint, _ ...string) { r.numerics = append(r.numerics, code) },
		Default: func(_ *irc.Session, event string, args ...string) {
			r.events = append(r.events, event)
			r.args[event] = args
		},
	}
}

func tickUntil(t *testing.T, s *irc.Session, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		if err := s.Tick(20 * time.Millisecond); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
}

func newSession(t *testing.T, e *Engine, h irc.Handlers) *irc.Session {
	t.Helper()
	s, err := irc.NewSession(e, h)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ── Tests ────────────────────────────────────────────────────────────

func TestConn_RegistrationAndDispatch(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	m := metrics.New()
	rec := &recorder{}
	s := newSession(t, New(Options{Metrics: m}), rec.handlers())

	if err := s.Connect("bob", host, port, "bobby", "Bob B"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sc := srv.accept(t)
	sc.expect(t, "NICK bob")
	sc.expect(t, "USER bobby 0 * :Bob B")

	sc.send(t,
		":irc.example.org 001 bob :Welcome to IRC",
		":irc.example.org 376 bob :End of /MOTD command.",
		"PING :irc.example.org",
		":alice!a@host PRIVMSG #go :hello gophers",
		":irc.example.org 376 bob :End of /MOTD command.",
	)
	tickUntil(t, s, func() bool { return len(rec.numerics) == 3 && len(rec.events) == 1 })

	if rec.connects != 1 {
		t.Errorf("connect fired %d times, want once", rec.connects)
	}
	if rec.numerics[0] != 1 || rec.numerics[1] != 376 {
		t.Errorf("numerics = %v", rec.numerics)
	}
	if got := rec.args["channel"]; strings.Join(got, "|") != "alice|#go|hello gophers" {
		t.Errorf("channel args = %q", got)
	}
	sc.expect(t, "PONG irc.example.org")

	if err := s.Send("#go", "hi alice"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sc.expect(t, "PRIVMSG #go :hi alice")

	if snap := m.Snapshot(); snap.BytesIn == 0 || snap.BytesOut == 0 {
		t.Errorf("byte counters not updated: %+v", snap)
	}
}

func TestConn_ConnectCommandAfterMOTD(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	rec := &recorder{}
	s := newSession(t, New(Options{}), rec.handlers())

	if err := s.Connect("bob", host, port, "", ""); err != nil {
		t.Fatal(err)
	}
	sc := srv.accept(t)
	sc.expect(t, "NICK bob")
	sc.send(t,
		":irc.example.org 376 bob :End of /MOTD command.",
		":evil!u@h CONNECT irc.other 6667",
	)
	tickUntil(t, s, func() bool { return len(rec.events) == 1 })

	if rec.connects != 1 {
		t.Errorf("connect fired %d times, want once", rec.connects)
	}
	if got := rec.args["connect"]; strings.Join(got, "|") != "evil|irc.other|6667" {
		t.Errorf("CONNECT command args = %q", got)
	}
}

func TestConn_NickTracking(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	rec := &recorder{}
	s := newSession(t, New(Options{}), rec.handlers())

	if err := s.Connect("bob", host, port, "", ""); err != nil {
		t.Fatal(err)
	}
	sc := srv.accept(t)
	sc.expect(t, "NICK bob")
	sc.expect(t, "USER default-user 0 * default-realname")

	sc.send(t,
		":bob!b@host NICK robert",
		":robert!b@host MODE robert :+i",
		":alice!a@host PRIVMSG robert :psst",
	)
	tickUntil(t, s, func() bool { return len(rec.events) == 3 })

	if s.Nickname() != "robert" {
		t.Errorf("session nickname = %q", s.Nickname())
	}
	want := []string{"nick", "umode", "privmsg"}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestConn_Commands(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	rec := &recorder{}
	s := newSession(t, New(Options{}), rec.handlers())

	if err := s.Connect("bob", host, port, "", ""); err != nil {
		t.Fatal(err)
	}
	sc := srv.accept(t)
	sc.expect(t, "NICK bob")
	sc.expect(t, "USER default-user 0 * default-realname")

	steps := []struct {
		run  func() error
		want string
	}{
		{func() error { return s.Join("#go", "") }, "JOIN #go"},
		{func() error { return s.Join("#secret", "key") }, "JOIN #secret key"},
		{func() error { return s.Part("#go") }, "PART #go"},
		{func() error { return s.Invite("alice", "#secret") }, "INVITE alice #secret"},
		{func() error { return s.Names("#go") }, "NAMES #go"},
		{func() error { return s.Notice("alice", "hi there") }, "NOTICE alice :hi there"},
		{func() error { return s.Topic("#go", "") }, "TOPIC #go"},
		{func() error { return s.Topic("#go", "gophers unite") }, "TOPIC #go :gophers unite"},
		{func() error { return s.Action("#go", "waves") }, "PRIVMSG #go :\x01ACTION waves\x01"},
		{func() error { return s.CTCPRequest("alice", "VERSION") }, "PRIVMSG alice \x01VERSION\x01"},
		{func() error { return s.CTCPReply("alice", "VERSION ircmux") }, "NOTICE alice :\x01VERSION ircmux\x01"},
		{func() error { return s.Nick("robert") }, "NICK robert"},
		{func() error { return s.SendRaw("AWAY :lunch") }, "AWAY :lunch"},
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			t.Fatalf("%q: %v", st.want, err)
		}
		sc.expect(t, st.want)
	}

	var cmdErr *irc.CommandError
	if err := s.Join("", ""); !errors.As(err, &cmdErr) {
		t.Errorf("expected *CommandError for an empty channel, got %v", err)
	}
	if err := s.SendRaw("PRIVMSG #a :x\r\nQUIT"); !errors.As(err, &cmdErr) {
		t.Errorf("expected *CommandError for an embedded line break, got %v", err)
	}

	s.Quit("")
	sc.expect(t, "QUIT bye")
}

func TestConn_ServerCloseWithoutReconnect(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	rec := &recorder{}
	s := newSession(t, New(Options{}), rec.handlers())

	if err := s.Connect("bob", host, port, "", ""); err != nil {
		t.Fatal(err)
	}
	sc := srv.accept(t)
	sc.send(t, "ERROR :Closing Link")
	sc.Close()

	tickUntil(t, s, func() bool { return s.State() == irc.Disconnected })

	if len(rec.events) != 1 || rec.events[0] != "error" {
		t.Errorf("events = %v, want [error]", rec.events)
	}

	var cmdErr *irc.CommandError
	if err := s.Join("#go", ""); !errors.As(err, &cmdErr) || !errors.Is(err, irc.ErrNotConnected) {
		t.Errorf("expected not-connected CommandError, got %v", err)
	}
}

func TestConn_AutoReconnect(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	rec := &recorder{}
	s := newSession(t, New(Options{}), rec.handlers())
	if err := s.SetOption("auto-reconnect", true); err != nil {
		t.Fatal(err)
	}

	if err := s.Connect("bob", host, port, "", ""); err != nil {
		t.Fatal(err)
	}
	first := srv.accept(t)
	first.expect(t, "NICK bob")
	first.send(t, ":irc.example.org 422 bob :MOTD File is missing")
	tickUntil(t, s, func() bool { return rec.connects == 1 })

	first.Close()
	second := make(chan *serverConn, 1)
	go func() { second <- <-srv.conns }()

	var sc *serverConn
	tickUntil(t, s, func() bool {
		select {
		case sc = <-second:
			return true
		default:
			return false
		}
	})
	t.Cleanup(func() { sc.Close() })
	sc.expect(t, "NICK bob")

	sc.send(t, ":irc.example.org 376 bob :End of /MOTD command.")
	tickUntil(t, s, func() bool { return rec.connects == 2 })
}

func TestConn_ProcessWhenDisconnected(t *testing.T) {
	e := New(Options{})
	c, err := e.NewConn(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.ProcessDescriptors(irc.NewDescriptors()); !errors.Is(err, ircerr.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := c.Command(irc.CmdJoin, "#go"); !errors.Is(err, ircerr.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	set := irc.NewDescriptors()
	c.AddDescriptors(set)
	if set.Max() != -1 {
		t.Error("a disconnected handle registers nothing")
	}
}

func TestConn_CircuitBreaker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	e := New(Options{
		DialTimeout: time.Second,
		Breaker:     &retry.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute},
	})
	c, err := e.NewConn(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for i := 0; i < 2; i++ {
		if err := c.Connect("127.0.0.1", port, "bob", "u", "r"); err == nil {
			t.Fatal("expected dial to fail")
		}
	}
	if err := c.Connect("127.0.0.1", port, "bob", "u", "r"); !errors.Is(err, ircerr.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen after repeated failures, got %v", err)
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	c, err := New(Options{}).NewConn(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := c.Connect("127.0.0.1", 6667, "bob", "u", "r"); !errors.Is(err, ircerr.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

// Close while the reader is mid-delivery must not leave a wake byte in a
// descriptor that was reused after the pipe was released.
func TestConn_CloseStopsWakeWrites(t *testing.T) {
	srv := startServer(t)
	host, port := srv.hostPort(t)
	e := New(Options{})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case sc := <-srv.conns:
				go func() {
					defer sc.Close()
					for {
						select {
						case <-stop:
							return
						default:
						}
						if _, err := io.WriteString(sc, ":irc.example.org NOTICE bob :flood\r\n"); err != nil {
							return
						}
					}
				}()
			case <-stop:
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		ic, err := e.NewConn(nil)
		if err != nil {
			t.Fatal(err)
		}
		c := ic.(*conn)
		if err := c.Connect(host, port, "bob", "", ""); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		deadline := time.Now().Add(5 * time.Second)
		for {
			c.mu.Lock()
			n := len(c.inbox)
			c.mu.Unlock()
			if n > 0 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("reader delivered nothing")
			}
			time.Sleep(time.Millisecond)
		}
		gen := c.currentGen()
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		// The kernel hands out the lowest free descriptors, so this pipe
		// usually takes over the numbers the wake pipe just gave up.
		var p [2]int
		if err := unix.Pipe(p[:]); err != nil {
			t.Fatal(err)
		}
		if err := unix.SetNonblock(p[0], true); err != nil {
			t.Fatal(err)
		}
		c.deliver(gen, "NOTICE bob :late", nil)
		time.Sleep(2 * time.Millisecond)

		var buf [16]byte
		n, _ := unix.Read(p[0], buf[:])
		unix.Close(p[0])
		unix.Close(p[1])
		if n > 0 {
			t.Fatalf("iteration %d: %d stray byte(s) written after Close", i, n)
		}
	}
}
