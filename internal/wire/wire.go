// Package wire converts between IRC protocol lines and messages.
//
// Parsing and serialization are delegated to ergochat's ircmsg; this
// package adds the pieces a client engine needs on top: origin
// stripping, channel detection, and CTCP framing.
package wire

import (
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// MaxLineLen is the RFC 1459 limit on a line, CRLF included.
const MaxLineLen = 512

const crlf = "\r\n"

// Message is one decoded server line.
type Message struct {
	Source  string // full prefix, "nick!user@host" or a server name
	Command string // upper-cased command or three-digit numeric
	Params  []string
}

// Nick returns the nick part of the source.
func (m Message) Nick() string { return NickOf(m.Source) }

// Numeric returns the reply code for numeric commands.
func (m Message) Numeric() (uint, bool) {
	if len(m.Command) != 3 {
		return 0, false
	}
	var code uint
	for _, c := range m.Command {
		if c < '0' || c > '9' {
			return 0, false
		}
		code = code*10 + uint(c-'0')
	}
	return code, true
}

// Parse decodes one line, with or without its line terminator.
func Parse(line string) (Message, error) {
	line = strings.TrimRight(line, crlf)
	if line == "" {
		return Message{}, fmt.Errorf("empty line")
	}
	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return Message{}, fmt.Errorf("parse %q: %w", line, err)
	}
	return Message{
		Source:  msg.Source,
		Command: strings.ToUpper(msg.Command),
		Params:  msg.Params,
	}, nil
}

// Format encodes a client command, CRLF included.  Only the last
// parameter may contain spaces.
func Format(command string, params ...string) (string, error) {
	msg := ircmsg.MakeMessage(nil, "", command, params...)
	line, err := msg.Line()
	if err != nil {
		return "", fmt.Errorf("format %s: %w", command, err)
	}
	if !strings.HasSuffix(line, crlf) {
		line = strings.TrimRight(line, crlf) + crlf
	}
	if len(line) > MaxLineLen {
		return "", fmt.Errorf("format %s: line exceeds %d bytes", command, MaxLineLen)
	}
	return line, nil
}

// Raw terminates a caller-supplied line, rejecting embedded line breaks.
func Raw(line string) (string, error) {
	line = strings.TrimRight(line, crlf)
	if line == "" {
		return "", fmt.Errorf("raw: empty line")
	}
	if strings.ContainsAny(line, "\r\n\x00") {
		return "", fmt.Errorf("raw: line contains a line break or NUL")
	}
	if len(line)+len(crlf) > MaxLineLen {
		return "", fmt.Errorf("raw: line exceeds %d bytes", MaxLineLen)
	}
	return line + crlf, nil
}

// NickOf strips "nick!user@host" down to "nick".  Server names pass
// through unchanged.
func NickOf(source string) string {
	if i := strings.IndexAny(source, "!@"); i >= 0 {
		return source[:i]
	}
	return source
}

// IsChannel reports whether target names a channel.
func IsChannel(target string) bool {
	if target == "" {
		return false
	}
	switch target[0] {
	case '#', '&', '+', '!':
		return true
	}
	return false
}
