package irc

// Engine allocates protocol connections.  The engine owns sockets, wire
// framing, command encoding, and event classification; this package
// only routes what the engine reports.
type Engine interface {
	// NewConn returns a fresh, unconnected handle that reports every
	// event it decodes to sink.
	NewConn(sink EventSink) (Conn, error)
}

// EventSink receives decoded events from a Conn.  Calls happen
// synchronously inside Conn.ProcessDescriptors.  An empty origin means
// the engine had none to report.
//
// Connected is reported once per connection, when registration is
// complete.  It never arrives through Event, so a server command that
// shares its name cannot trigger it.
type EventSink interface {
	Event(name, origin string, params []string)
	Numeric(code uint, origin string, params []string)
	Connected()
}

// Conn is one engine connection handle, owned by exactly one Session.
type Conn interface {
	Connect(host string, port int, nick, user, real string) error
	Disconnect()
	IsConnected() bool

	// Close destroys the handle.  It is not usable afterwards.
	Close() error

	Command(cmd Command, args ...string) error

	// AddDescriptors registers the handle's descriptors in set.
	AddDescriptors(set *Descriptors)

	// ProcessDescriptors performs ready I/O and dispatches whatever
	// it decodes before returning.
	ProcessDescriptors(set *Descriptors) error

	SetOption(opt EngineOption, enabled bool)
}

// Command identifies a protocol command issued through Conn.Command.
// The argument list per command is documented on each constant.
type Command int

const (
	CmdQuit        Command = iota // reason
	CmdJoin                       // channel, key ("" for none)
	CmdPart                       // channel
	CmdInvite                     // nick, channel
	CmdNames                      // channel
	CmdPrivmsg                    // target, text
	CmdNotice                     // target, text
	CmdRaw                        // line
	CmdNick                       // newnick
	CmdTopic                      // channel, topic ("" queries)
	CmdAction                     // target, text
	CmdCTCPRequest                // target, request
	CmdCTCPReply                  // target, reply
)

var commandNames = [...]string{
	CmdQuit:        "quit",
	CmdJoin:        "join",
	CmdPart:        "part",
	CmdInvite:      "invite",
	CmdNames:       "names",
	CmdPrivmsg:     "privmsg",
	CmdNotice:      "notice",
	CmdRaw:         "raw",
	CmdNick:        "nick",
	CmdTopic:       "topic",
	CmdAction:      "action",
	CmdCTCPRequest: "ctcp request",
	CmdCTCPReply:   "ctcp reply",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "unknown"
	}
	return commandNames[c]
}

// EngineOption is an engine-level flag toggled through Conn.SetOption.
type EngineOption int

const (
	// OptDebug makes the engine log raw protocol traffic.
	OptDebug EngineOption = iota

	// OptVerifyPeer enables TLS peer certificate verification.
	OptVerifyPeer
)

func (o EngineOption) String() string {
	switch o {
	case OptDebug:
		return "debug"
	case OptVerifyPeer:
		return "verify-peer"
	default:
		return "unknown"
	}
}
