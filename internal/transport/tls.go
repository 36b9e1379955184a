package transport

import (
	"context"
	"crypto/tls"
	"net"

	ircerr "ircmux/internal/errors"
)

// TLSDialer wraps the connections of another Dialer in TLS.  The
// handshake completes inside Dial so certificate problems surface as
// dial errors rather than on the first read.
type TLSDialer struct {
	Base Dialer

	// Config is cloned per dial.  ServerName defaults to the host
	// part of the dialled address.
	Config *tls.Config

	// InsecureSkipVerify disables peer certificate verification.
	InsecureSkipVerify bool
}

// Dial connects through Base and performs the TLS handshake.
func (d *TLSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	raw, err := d.Base.Dial(ctx, network, address)
	if err != nil {
		return nil, err
	}

	cfg := d.clientConfig(address)
	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, &ircerr.NetworkError{Op: "handshake", Addr: address, Err: err}
	}
	return conn, nil
}

func (d *TLSDialer) clientConfig(address string) *tls.Config {
	var cfg *tls.Config
	if d.Config != nil {
		cfg = d.Config.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			host = address
		}
		cfg.ServerName = host
	}
	if d.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true //nolint:gosec // user opted out of verification
	}
	return cfg
}

// Close closes the base dialer.
func (d *TLSDialer) Close() error { return d.Base.Close() }
