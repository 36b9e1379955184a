package engine

import (
	"strings"

	"ircmux/internal/wire"
)

// Reply codes that end registration.
const (
	rplEndOfMOTD = 376
	errNoMOTD    = 422
	rplWelcome   = 1
)

// classify names a non-numeric server message and picks the params
// its handler receives.  self is the connection's current nickname.
//
// PRIVMSG and NOTICE split by target and CTCP framing; MODE splits on
// whether the target is us.  Anything else is reported under its
// lower-cased command.
func classify(msg wire.Message, self string) (string, []string) {
	params := msg.Params

	switch msg.Command {
	case "MODE":
		if len(params) > 0 && strings.EqualFold(params[0], self) {
			return "umode", params
		}
		return "mode", params

	case "PRIVMSG":
		target, text := targetAndText(params)
		if wire.IsCTCP(text) {
			command, args, ok := wire.ParseCTCP(text)
			if !ok {
				return "privmsg", params
			}
			if command == "ACTION" {
				return "ctcp_action", []string{target, args}
			}
			return "ctcp_req", []string{ctcpBody(command, args)}
		}
		if strings.EqualFold(target, self) {
			return "privmsg", params
		}
		return "channel", params

	case "NOTICE":
		target, text := targetAndText(params)
		if wire.IsCTCP(text) {
			if command, args, ok := wire.ParseCTCP(text); ok {
				return "ctcp_rep", []string{ctcpBody(command, args)}
			}
		}
		if wire.IsChannel(target) {
			return "channel_notice", params
		}
		return "notice", params
	}

	return strings.ToLower(msg.Command), params
}

func targetAndText(params []string) (string, string) {
	switch len(params) {
	case 0:
		return "", ""
	case 1:
		return params[0], ""
	default:
		return params[0], params[len(params)-1]
	}
}

func ctcpBody(command, args string) string {
	if args == "" {
		return command
	}
	return command + " " + args
}
