package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitServerAddr splits "host[:port]" into its parts, falling back to
// defaultPort when no port is given.  IPv6 literals must be bracketed
// when a port is present ("[::1]:6697").
func SplitServerAddr(addr string, defaultPort int) (string, int, error) {
	if addr == "" {
		return "", 0, fmt.Errorf("server address is empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port, or a bare IPv6 literal.
		if strings.Count(addr, ":") > 1 && !strings.HasPrefix(addr, "[") {
			return addr, defaultPort, nil
		}
		if strings.Contains(addr, ":") && !strings.HasSuffix(addr, "]") {
			return "", 0, fmt.Errorf("invalid server address %q: %w", addr, err)
		}
		return strings.Trim(addr, "[]"), defaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in %q", portStr, addr)
	}
	if host == "" {
		return "", 0, fmt.Errorf("server host is required in %q", addr)
	}
	return host, port, nil
}
