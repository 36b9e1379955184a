// Package transport opens the byte streams IRC sessions run over.
// Transports decide how a server is reached (plain TCP, TLS, or an SSH
// gateway) and know nothing about the protocol spoken on top.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
