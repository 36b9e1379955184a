package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	ircerr "ircmux/internal/errors"
)

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source address.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration // 0 uses the net package default
	LocalAddr string        // optional source host or IP ("" = any)
}

// Dial connects to address over TCP.  Failures are reported as
// *errors.NetworkError with retryability classified.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}

	if d.LocalAddr != "" {
		a, err := net.ResolveTCPAddr(network, net.JoinHostPort(d.LocalAddr, "0"))
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ircerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
