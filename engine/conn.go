package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	ircerr "ircmux/internal/errors"
	"ircmux/internal/retry"
	"ircmux/internal/wire"
	"ircmux/irc"
	"ircmux/util"
)

// conn is one server connection.  Fields below mu are shared with the
// reader goroutine; everything else belongs to the caller.
type conn struct {
	eng     *Engine
	sink    irc.EventSink
	log     *util.Logger
	breaker *retry.CircuitBreaker

	nc         net.Conn
	addr       string
	nick       string
	connected  bool
	registered bool
	closed     bool
	debug      bool
	verifyPeer bool

	mu      sync.Mutex
	gen     uint64 // bumped on every teardown; stale readers drop output
	inbox   []string
	readErr error

	// wake[0] is registered for readiness; the reader writes wake[1]
	// under mu, and Close releases both under mu.
	wake [2]int
}

var _ irc.Conn = (*conn)(nil)

func newConn(e *Engine, sink irc.EventSink) (*conn, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("wake pipe: %w", err)
		}
	}
	if p[0] > irc.MaxDescriptor {
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, fmt.Errorf("wake pipe descriptor %d exceeds select limit", p[0])
	}

	c := &conn{
		eng:        e,
		sink:       sink,
		log:        e.opts.Logger,
		wake:       p,
		verifyPeer: true,
	}
	bc := retry.DefaultCircuitBreakerConfig()
	if e.opts.Breaker != nil {
		cp := *e.opts.Breaker
		bc = &cp
	}
	next := bc.OnStateChange
	bc.OnStateChange = func(from, to retry.State) {
		c.log.Verbose("dial circuit for %s: %s → %s", c.addr, from, to)
		if next != nil {
			next(from, to)
		}
	}
	c.breaker = retry.NewCircuitBreaker(bc)
	return c, nil
}

// ── Connection lifecycle ─────────────────────────────────────────────

// Connect dials the server and sends registration.  The connect event
// fires later, when the server finishes the MOTD.
func (c *conn) Connect(host string, port int, nick, user, real string) error {
	switch {
	case c.closed:
		return ircerr.ErrSessionClosed
	case c.connected:
		return ircerr.ErrAlreadyConnected
	case host == "" || nick == "":
		return fmt.Errorf("host and nick are required")
	}

	addr := util.FormatAddr(host, port)
	c.addr = addr
	ctx, cancel := context.WithTimeout(context.Background(), c.eng.opts.DialTimeout)
	defer cancel()

	var nc net.Conn
	err := c.breaker.Execute(func() error {
		var err error
		nc, err = c.eng.dialer(c.verifyPeer).Dial(ctx, "tcp", addr)
		return err
	})
	if err != nil {
		c.log.Verbose("dial %s: %v", addr, err)
		return err
	}
	c.log.Verbose("connected to %s", addr)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.inbox = nil
	c.readErr = nil
	c.mu.Unlock()
	c.drainWake()

	c.nc = nc
	c.nick = nick
	c.connected = true
	c.registered = false

	go c.readLoop(nc, gen)

	if err := c.send("NICK", nick); err != nil {
		return err
	}
	return c.send("USER", user, "0", "*", real)
}

// Disconnect drops the connection without sending QUIT.
func (c *conn) Disconnect() {
	if c.nc == nil {
		return
	}
	c.mu.Lock()
	c.gen++
	c.inbox = nil
	c.readErr = nil
	c.mu.Unlock()

	c.nc.Close()
	c.nc = nil
	c.connected = false
	c.registered = false
	c.drainWake()
}

func (c *conn) IsConnected() bool { return c.connected }

// Close disconnects and releases the wake pipe.
func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.Disconnect()
	c.closed = true

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	err := unix.Close(c.wake[0])
	if err2 := unix.Close(c.wake[1]); err == nil {
		err = err2
	}
	c.wake = [2]int{-1, -1}
	return err
}

func (c *conn) SetOption(opt irc.EngineOption, enabled bool) {
	switch opt {
	case irc.OptDebug:
		c.debug = enabled
	case irc.OptVerifyPeer:
		c.verifyPeer = enabled
	}
}

// ── Readiness ────────────────────────────────────────────────────────

func (c *conn) AddDescriptors(set *irc.Descriptors) {
	if c.connected {
		set.AddRead(c.wake[0])
	}
}

// ProcessDescriptors decodes and dispatches every line the reader has
// queued.  A read failure tears the connection down and is returned
// after the lines that preceded it are dispatched.
func (c *conn) ProcessDescriptors(set *irc.Descriptors) error {
	if !c.connected {
		return ircerr.ErrNotConnected
	}
	if !set.Readable(c.wake[0]) {
		return nil
	}
	c.drainWake()

	c.mu.Lock()
	gen := c.gen
	lines := c.inbox
	readErr := c.readErr
	c.inbox = nil
	c.readErr = nil
	c.mu.Unlock()

	for _, line := range lines {
		if err := c.handle(line); err != nil {
			return err
		}
		// A handler may have disconnected or reconnected us.
		if c.currentGen() != gen {
			return nil
		}
	}

	if readErr != nil {
		addr := c.addr
		c.Disconnect()
		if errors.Is(readErr, io.EOF) {
			readErr = fmt.Errorf("connection closed by server")
		}
		return ircerr.Wrap("read", addr, readErr)
	}
	return nil
}

func (c *conn) currentGen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *conn) readLoop(nc net.Conn, gen uint64) {
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	sc := bufio.NewScanner(nc)
	sc.Buffer((*buf)[:0], len(*buf))
	for sc.Scan() {
		c.deliver(gen, sc.Text(), nil)
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	c.deliver(gen, "", err)
}

// deliver queues a line for the caller and pokes the wake pipe.  The
// write happens under mu so that Close cannot release the pipe between
// the generation check and the write.
func (c *conn) deliver(gen uint64, line string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if err != nil {
		c.readErr = err
	} else {
		c.inbox = append(c.inbox, line)
	}

	// A full pipe is already readable.
	unix.Write(c.wake[1], []byte{1}) //nolint:errcheck
}

func (c *conn) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(c.wake[0], buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// ── Incoming traffic ─────────────────────────────────────────────────

// handle decodes one line and reports it to the sink.  Only write
// failures (from automatic PONG) are returned.
func (c *conn) handle(line string) error {
	c.eng.opts.Metrics.BytesReceived(int64(len(line)))
	if c.debug {
		c.log.Debug("<< %s", strings.TrimRight(line, "\r\n"))
	}

	msg, err := wire.Parse(line)
	if err != nil {
		c.log.Debug("skipping line: %v", err)
		return nil
	}
	origin := msg.Nick()

	if code, ok := msg.Numeric(); ok {
		if code == rplWelcome && len(msg.Params) > 0 {
			c.nick = msg.Params[0]
		}
		if (code == rplEndOfMOTD || code == errNoMOTD) && !c.registered {
			c.registered = true
			c.sink.Connected()
		}
		c.sink.Numeric(code, origin, msg.Params)
		return nil
	}

	switch msg.Command {
	case "PING":
		return c.send("PONG", msg.Params...)
	case "NICK":
		if len(msg.Params) > 0 && strings.EqualFold(origin, c.nick) {
			c.nick = msg.Params[0]
		}
	}

	name, params := classify(msg, c.nick)
	c.sink.Event(name, origin, params)
	return nil
}

// ── Outgoing traffic ─────────────────────────────────────────────────

func (c *conn) Command(cmd irc.Command, args ...string) error {
	if !c.connected {
		return ircerr.ErrNotConnected
	}

	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	need := func(n int) error {
		for i := 0; i < n; i++ {
			if arg(i) == "" {
				return fmt.Errorf("%s: missing argument %d", cmd, i+1)
			}
		}
		return nil
	}

	switch cmd {
	case irc.CmdQuit:
		return c.send("QUIT", arg(0))
	case irc.CmdJoin:
		if err := need(1); err != nil {
			return err
		}
		if key := arg(1); key != "" {
			return c.send("JOIN", arg(0), key)
		}
		return c.send("JOIN", arg(0))
	case irc.CmdPart:
		if err := need(1); err != nil {
			return err
		}
		return c.send("PART", arg(0))
	case irc.CmdInvite:
		if err := need(2); err != nil {
			return err
		}
		return c.send("INVITE", arg(0), arg(1))
	case irc.CmdNames:
		if err := need(1); err != nil {
			return err
		}
		return c.send("NAMES", arg(0))
	case irc.CmdPrivmsg, irc.CmdNotice:
		if err := need(2); err != nil {
			return err
		}
		verb := "PRIVMSG"
		if cmd == irc.CmdNotice {
			verb = "NOTICE"
		}
		return c.send(verb, arg(0), arg(1))
	case irc.CmdRaw:
		line, err := wire.Raw(arg(0))
		if err != nil {
			return err
		}
		return c.write(line)
	case irc.CmdNick:
		if err := need(1); err != nil {
			return err
		}
		return c.send("NICK", arg(0))
	case irc.CmdTopic:
		if err := need(1); err != nil {
			return err
		}
		if topic := arg(1); topic != "" {
			return c.send("TOPIC", arg(0), topic)
		}
		return c.send("TOPIC", arg(0))
	case irc.CmdAction:
		if err := need(2); err != nil {
			return err
		}
		return c.send("PRIVMSG", arg(0), wire.CTCP("ACTION "+arg(1)))
	case irc.CmdCTCPRequest:
		if err := need(2); err != nil {
			return err
		}
		return c.send("PRIVMSG", arg(0), wire.CTCP(arg(1)))
	case irc.CmdCTCPReply:
		if err := need(2); err != nil {
			return err
		}
		return c.send("NOTICE", arg(0), wire.CTCP(arg(1)))
	}
	return fmt.Errorf("unsupported command %v", cmd)
}

func (c *conn) send(command string, params ...string) error {
	line, err := wire.Format(command, params...)
	if err != nil {
		return err
	}
	return c.write(line)
}

// write sends one terminated line.  A failed write tears the
// connection down.
func (c *conn) write(line string) error {
	if c.nc == nil {
		return ircerr.ErrNotConnected
	}
	if c.debug {
		c.log.Debug(">> %s", strings.TrimRight(line, "\r\n"))
	}

	c.nc.SetWriteDeadline(time.Now().Add(c.eng.opts.WriteTimeout)) //nolint:errcheck
	n, err := io.WriteString(c.nc, line)
	c.eng.opts.Metrics.BytesSent(int64(n))
	if err != nil {
		addr := c.addr
		c.Disconnect()
		return ircerr.Wrap("write", addr, err)
	}
	return nil
}
