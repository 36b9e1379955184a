// Package config defines the runtime configuration for the ircmux
// driver and provides helpers for parsing tunnel specifications and
// resolving the set of networks to join.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ircmux/util"
)

// Config holds every tuneable for one ircmux run.
type Config struct {
	// ── Identity ─────────────────────────────────────────────────────
	Nick     string
	User     string
	Realname string

	// ── Server ───────────────────────────────────────────────────────
	Server        string // raw host[:port] from the command line
	Channels      []string
	TLS           bool
	NoVerify      bool
	AutoReconnect bool
	Timeout       time.Duration // dial timeout
	Tick          time.Duration // readiness-wait timeout per pass

	// NetworkFile names a YAML file listing several servers; its
	// entries populate Networks.
	NetworkFile string
	Networks    []Network

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec        string // raw user@host[:port] from -T
	TunnelEnabled     bool
	TunnelUser        string
	TunnelHost        string
	TunnelPort        int
	SSHKeyPath        string
	SSHPassword       bool // true → prompt interactively
	UseSSHAgent       bool
	StrictHostKey     bool
	KnownHostsPath    string
	KeepAliveInterval int // seconds, 0 disables

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
	Metrics bool // print a metrics snapshot on exit
}

// Network is one server to connect to.  Empty identity fields inherit
// from the enclosing Config.
type Network struct {
	Name          string   `yaml:"name"`
	Server        string   `yaml:"server"`
	Nick          string   `yaml:"nick"`
	User          string   `yaml:"user"`
	Realname      string   `yaml:"realname"`
	Channels      []string `yaml:"channels"`
	TLS           bool     `yaml:"tls"`
	NoVerify      bool     `yaml:"no_verify"`
	AutoReconnect bool     `yaml:"auto_reconnect"`

	// Filled in by Targets.
	Host string `yaml:"-"`
	Port int    `yaml:"-"`
}

// Targets resolves the networks this run connects to: the entries of
// the network file, or the single server named on the command line.
// Host and Port are split out and identity defaults applied.
func (c *Config) Targets() ([]Network, error) {
	nets := c.Networks
	if len(nets) == 0 {
		if c.Server == "" {
			return nil, fmt.Errorf("server is required (hint: ircmux <nick> <host>[:port] or --network FILE)")
		}
		nets = []Network{{Server: c.Server}}
	}

	out := make([]Network, 0, len(nets))
	seen := make(map[string]bool, len(nets))
	for i, n := range nets {
		if n.Nick == "" {
			n.Nick = c.Nick
		}
		if n.User == "" {
			n.User = c.User
		}
		if n.Realname == "" {
			n.Realname = c.Realname
		}
		if len(n.Channels) == 0 {
			n.Channels = c.Channels
		}
		n.TLS = n.TLS || c.TLS
		n.NoVerify = n.NoVerify || c.NoVerify
		n.AutoReconnect = n.AutoReconnect || c.AutoReconnect

		defPort := DefaultPort
		if n.TLS {
			defPort = DefaultTLSPort
		}
		host, port, err := util.SplitServerAddr(n.Server, defPort)
		if err != nil {
			return nil, fmt.Errorf("network %d: %w", i+1, err)
		}
		n.Host, n.Port = host, port
		if n.Name == "" {
			n.Name = host
		}
		if seen[n.Name] {
			return nil, fmt.Errorf("network %q is listed twice (hint: give each entry a distinct name)", n.Name)
		}
		seen[n.Name] = true

		if n.Nick == "" {
			return nil, fmt.Errorf("network %q: nick is required", n.Name)
		}
		for _, ch := range n.Channels {
			if !isChannel(ch) {
				return nil, fmt.Errorf("network %q: invalid channel %q (hint: channels start with #, &, + or !)", n.Name, ch)
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func isChannel(name string) bool {
	return len(name) > 1 && strings.ContainsRune("#&+!", rune(name[0])) &&
		!strings.ContainsAny(name, " ,\a")
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ResolveTunnel parses TunnelSpec, if set, into the tunnel fields.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", c.Tick)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.KeepAliveInterval < 0 {
		return fmt.Errorf("keepalive interval must not be negative")
	}

	if _, err := c.Targets(); err != nil {
		return err
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}
	if !c.TunnelEnabled && (c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent) {
		return fmt.Errorf("SSH options given without a tunnel (hint: add -T [user@]host[:port])")
	}
	return nil
}
