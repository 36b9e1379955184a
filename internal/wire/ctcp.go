package wire

import "strings"

const ctcpDelim = "\x01"

// IsCTCP reports whether text is a CTCP-framed message.
func IsCTCP(text string) bool {
	return len(text) >= 2 && strings.HasPrefix(text, ctcpDelim)
}

// ParseCTCP unframes a CTCP message into its upper-cased command and
// the rest.  A missing closing delimiter is tolerated.
func ParseCTCP(text string) (command, args string, ok bool) {
	if !IsCTCP(text) {
		return "", "", false
	}
	body := strings.TrimSuffix(text[1:], ctcpDelim)
	if body == "" {
		return "", "", false
	}
	command, args, _ = strings.Cut(body, " ")
	return strings.ToUpper(command), args, true
}

// CTCP frames body ("VERSION", "ACTION waves") as a CTCP message.
func CTCP(body string) string {
	return ctcpDelim + body + ctcpDelim
}
