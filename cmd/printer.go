package cmd

import (
	"fmt"
	"io"
	"strings"

	"ircmux/config"
	"ircmux/irc"
	"ircmux/util"
)

// printer renders chat traffic as text lines.
type printer struct {
	w      io.Writer
	prefix bool // tag lines with the network name
}

func newPrinter(w io.Writer, prefix bool) *printer {
	return &printer{w: w, prefix: prefix}
}

func (p *printer) line(network, format string, args ...interface{}) {
	if p.prefix {
		format = "[" + network + "] " + format
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

// handlers builds the handler table for one network.
func (p *printer) handlers(n config.Network, logger *util.Logger) irc.Handlers {
	name := n.Name
	h := irc.Handlers{
		Connect: func(s *irc.Session) {
			logger.Info("%s: registered as %s", name, s.Nickname())
			for _, ch := range n.Channels {
				if err := s.Join(ch, ""); err != nil {
					logger.Error("%s: join %s: %v", name, ch, err)
				}
			}
		},
		Numeric: func(s *irc.Session, code uint, args ...string) {
			logger.Verbose("%s: %03d %s", name, code, strings.Join(args, " "))
		},
		Default: func(s *irc.Session, event string, args ...string) {
			logger.Debug("%s: %s %q", name, event, args)
		},
	}

	h.On(irc.KindChannel, func(s *irc.Session, args ...string) {
		if len(args) >= 3 {
			p.line(name, "<%s:%s> %s", args[0], args[1], args[2])
		}
	}).On(irc.KindPrivmsg, func(s *irc.Session, args ...string) {
		if len(args) >= 3 {
			p.line(name, "*%s* %s", args[0], args[2])
		}
	}).On(irc.KindNotice, func(s *irc.Session, args ...string) {
		if len(args) >= 3 {
			p.line(name, "-%s- %s", args[0], args[2])
		}
	}).On(irc.KindChannelNotice, func(s *irc.Session, args ...string) {
		if len(args) >= 3 {
			p.line(name, "-%s:%s- %s", args[0], args[1], args[2])
		}
	}).On(irc.KindCTCPAction, func(s *irc.Session, args ...string) {
		if len(args) >= 3 {
			p.line(name, "* %s %s", args[0], args[2])
		}
	}).On(irc.KindCTCPRequest, func(s *irc.Session, args ...string) {
		if len(args) < 2 {
			return
		}
		if reply, ok := ctcpReply(args[1]); ok {
			if err := s.CTCPReply(args[0], reply); err != nil {
				logger.Warn("%s: ctcp reply to %s: %v", name, args[0], err)
			}
		}
	}).On(irc.KindJoin, func(s *irc.Session, args ...string) {
		if len(args) >= 2 && args[0] == s.Nickname() {
			p.line(name, "joined %s", args[1])
		}
	})
	return h
}

// ctcpReply answers the CTCP queries ircmux understands.
func ctcpReply(body string) (string, bool) {
	command, arg, _ := strings.Cut(body, " ")
	switch strings.ToUpper(command) {
	case "VERSION":
		return "VERSION " + irc.Version, true
	case "PING":
		return strings.TrimSpace("PING " + arg), true
	}
	return "", false
}
