package irc

import "strings"

// Kind is a named protocol event that can carry its own handler.
type Kind int

const (
	KindQuit Kind = iota
	KindNick
	KindJoin
	KindPart
	KindMode
	KindUmode
	KindTopic
	KindKick
	KindChannel
	KindPrivmsg
	KindNotice
	KindChannelNotice
	KindInvite
	KindCTCPRequest
	KindCTCPReply
	KindCTCPAction

	numKinds
)

var kindNames = [numKinds]string{
	KindQuit:          "quit",
	KindNick:          "nick",
	KindJoin:          "join",
	KindPart:          "part",
	KindMode:          "mode",
	KindUmode:         "umode",
	KindTopic:         "topic",
	KindKick:          "kick",
	KindChannel:       "channel",
	KindPrivmsg:       "privmsg",
	KindNotice:        "notice",
	KindChannelNotice: "channel_notice",
	KindInvite:        "invite",
	KindCTCPRequest:   "ctcp_req",
	KindCTCPReply:     "ctcp_rep",
	KindCTCPAction:    "ctcp_action",
}

// Reserved handler keys outside the Kind table.
const (
	keyConnect = "connect"
	keyNumeric = "numeric"
	keyDefault = "default"
)

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps an event name to its Kind, ignoring case.  Names with
// no dedicated slot (unknown server commands, "connect") report false.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(name)
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}
