package config

// loader.go - configuration loading from the network file and
// environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Network file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ── Network file ─────────────────────────────────────────────────────

// File is the YAML network file:
//
//	nick: gopher
//	tick: 500ms
//	networks:
//	  - name: libera
//	    server: irc.libera.chat:6697
//	    tls: true
//	    channels: ["#go-nuts"]
//	  - server: irc.oftc.net
//	    nick: gopher_
//
// ${VAR} references are expanded from the environment before parsing.
type File struct {
	Nick          string        `yaml:"nick"`
	User          string        `yaml:"user"`
	Realname      string        `yaml:"realname"`
	Tick          time.Duration `yaml:"tick"`
	AutoReconnect bool          `yaml:"auto_reconnect"`
	Networks      []Network     `yaml:"networks"`
}

// LoadFile reads and parses the network file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile parses network file contents.  Unknown keys are rejected so
// that a misspelt option does not silently fall back to its default.
func ParseFile(data []byte) (*File, error) {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse network file: %w", err)
	}
	if len(f.Networks) == 0 {
		return nil, fmt.Errorf("network file lists no networks")
	}
	return &f, nil
}

// Apply overlays the file onto cfg.  Only non-zero values override.
func (f *File) Apply(cfg *Config) {
	if f.Nick != "" {
		cfg.Nick = f.Nick
	}
	if f.User != "" {
		cfg.User = f.User
	}
	if f.Realname != "" {
		cfg.Realname = f.Realname
	}
	if f.Tick > 0 {
		cfg.Tick = f.Tick
	}
	if f.AutoReconnect {
		cfg.AutoReconnect = true
	}
	cfg.Networks = append([]Network(nil), f.Networks...)
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the IRCMUX_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Flags are applied afterwards
// so that they take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("IRCMUX_NICK"); v != "" {
		cfg.Nick = v
	}
	if v := os.Getenv("IRCMUX_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("IRCMUX_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("IRCMUX_REALNAME"); v != "" {
		cfg.Realname = v
	}
	if v := envList("IRCMUX_CHANNELS"); len(v) > 0 {
		cfg.Channels = v
	}
	if envBool("IRCMUX_TLS") {
		cfg.TLS = true
	}
	if envBool("IRCMUX_NO_VERIFY") {
		cfg.NoVerify = true
	}
	if envBool("IRCMUX_AUTO_RECONNECT") {
		cfg.AutoReconnect = true
	}
	if v := envInt("IRCMUX_TICK"); v > 0 {
		cfg.Tick = millisDuration(v)
	}
	if v := envInt("IRCMUX_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := os.Getenv("IRCMUX_NETWORK_FILE"); v != "" {
		cfg.NetworkFile = v
	}

	// SSH tunnel
	if v := os.Getenv("IRCMUX_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("IRCMUX_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("IRCMUX_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("IRCMUX_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("IRCMUX_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("IRCMUX_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}
	if v := envInt("IRCMUX_KEEP_ALIVE"); v > 0 {
		cfg.KeepAliveInterval = v
	}

	// Output
	if v := envInt("IRCMUX_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

func millisDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
