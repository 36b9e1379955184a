package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the network file, and environment variable loading.

const (
	// DefaultPort is the conventional plaintext IRC port.
	DefaultPort = 6667

	// DefaultTLSPort is the conventional IRC-over-TLS port.
	DefaultTLSPort = 6697

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultKeepAliveInterval is the SSH keepalive interval in seconds.
	DefaultKeepAliveInterval = 30

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultTick is the readiness-wait timeout of one scheduler pass.
	DefaultTick = 250 * time.Millisecond

	// DefaultReconnectDelay is the first pause after a failed reconnect.
	DefaultReconnectDelay = time.Second

	// DefaultMaxReconnectBackoff caps the exponential backoff between
	// failed reconnect passes.
	DefaultMaxReconnectBackoff = 60 * time.Second
)

// Default returns a Config populated with the defaults above.
func Default() *Config {
	return &Config{
		Timeout:           DefaultConnTimeout,
		Tick:              DefaultTick,
		KeepAliveInterval: DefaultKeepAliveInterval,
	}
}
