// Package tunnel carries IRC connections through an SSH gateway, for
// networks that are only reachable from a bastion host.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which IRC server
// connections can be opened.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel and every connection opened through it.
	Close() error

	// IsAlive reports whether the gateway connection is still up.
	IsAlive() bool
}
