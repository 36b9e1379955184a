// Package cmd wires up the CLI flags and runs the session multiplexer.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"ircmux/config"
	"ircmux/irc"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ircmux/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout receives chat output; logs go to stderr.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// Execute parses args and runs ircmux until ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	fl := &config.Config{}
	fs := flag.NewFlagSet("ircmux", flag.ContinueOnError)

	// ── identity & server ────────────────────────────────────────
	fs.StringArrayVarP(&fl.Channels, "join", "j", nil, "Channel to join on connect (repeatable)")
	fs.StringVarP(&fl.User, "user", "u", "", "Username sent at registration")
	fs.StringVarP(&fl.Realname, "realname", "r", "", "Real name sent at registration")
	fs.BoolVarP(&fl.TLS, "tls", "t", false, "Connect over TLS")
	fs.BoolVar(&fl.NoVerify, "no-verify", false, "Skip TLS certificate verification")
	fs.BoolVarP(&fl.AutoReconnect, "auto-reconnect", "a", false, "Reconnect after the server drops the connection")
	fs.StringVarP(&fl.NetworkFile, "network", "n", "", "YAML file listing the networks to join")

	var tickMS, timeoutSec int
	fs.IntVar(&tickMS, "tick", int(config.DefaultTick/time.Millisecond), "Readiness-wait timeout in milliseconds")
	fs.IntVarP(&timeoutSec, "timeout", "w", int(config.DefaultConnTimeout/time.Second), "Connect timeout in seconds")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&fl.TunnelSpec, "tunnel", "T", "", "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&fl.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&fl.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&fl.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&fl.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&fl.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")
	fs.IntVar(&fl.KeepAliveInterval, "keepalive", config.DefaultKeepAliveInterval, "SSH keepalive interval in seconds (0 disables)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fl.Verbose, "verbose", "v", "Increase verbosity (repeatable, -vvv logs raw lines)")
	fs.BoolVar(&fl.DryRun, "dry-run", false, "Validate configuration and print the networks, then exit")
	fs.BoolVar(&fl.Metrics, "metrics", false, "Print a metrics snapshot on exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "ircmux %s (%s)\n", version, irc.Version)
		return nil
	}

	// ── layer: defaults < file < env < flags ─────────────────────
	cfg := config.Default()

	path := fl.NetworkFile
	if path == "" {
		path = os.Getenv("IRCMUX_NETWORK_FILE")
	}
	if path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		f.Apply(cfg)
	}

	config.LoadFromEnv(cfg)

	fs.Visit(func(f *flag.Flag) {
		applyFlag(cfg, fl, f.Name, tickMS, timeoutSec)
	})

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if err := cfg.ResolveTunnel(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	targets, err := cfg.Targets()
	if err != nil {
		return err
	}

	if cfg.DryRun {
		printTargets(cfg, targets)
		return nil
	}

	return run(ctx, cfg, targets)
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlag copies one explicitly set flag from fl onto cfg.
func applyFlag(cfg, fl *config.Config, name string, tickMS, timeoutSec int) {
	switch name {
	case "join":
		cfg.Channels = fl.Channels
	case "user":
		cfg.User = fl.User
	case "realname":
		cfg.Realname = fl.Realname
	case "tls":
		cfg.TLS = fl.TLS
	case "no-verify":
		cfg.NoVerify = fl.NoVerify
	case "auto-reconnect":
		cfg.AutoReconnect = fl.AutoReconnect
	case "network":
		cfg.NetworkFile = fl.NetworkFile
	case "tick":
		cfg.Tick = time.Duration(tickMS) * time.Millisecond
	case "timeout":
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	case "tunnel":
		cfg.TunnelSpec = fl.TunnelSpec
	case "ssh-key":
		cfg.SSHKeyPath = fl.SSHKeyPath
	case "ssh-password":
		cfg.SSHPassword = fl.SSHPassword
	case "ssh-agent":
		cfg.UseSSHAgent = fl.UseSSHAgent
	case "strict-hostkey":
		cfg.StrictHostKey = fl.StrictHostKey
	case "known-hosts":
		cfg.KnownHostsPath = fl.KnownHostsPath
	case "keepalive":
		cfg.KeepAliveInterval = fl.KeepAliveInterval
	case "verbose":
		cfg.Verbose = fl.Verbose
	case "dry-run":
		cfg.DryRun = fl.DryRun
	case "metrics":
		cfg.Metrics = fl.Metrics
	}
}

// parsePositional handles "<nick> [<host>[:port]]".
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
	case 1:
		cfg.Nick = remaining[0]
	case 2:
		if len(cfg.Networks) > 0 {
			return fmt.Errorf("a server argument cannot be combined with a network file")
		}
		cfg.Nick = remaining[0]
		cfg.Server = remaining[1]
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
	return nil
}

func printTargets(cfg *config.Config, targets []config.Network) {
	for _, n := range targets {
		mode := "plain"
		if n.TLS {
			mode = "tls"
			if n.NoVerify {
				mode += " (unverified)"
			}
		}
		fmt.Fprintf(stdout, "%s: %s@%s:%d %s", n.Name, n.Nick, n.Host, n.Port, mode)
		if len(n.Channels) > 0 {
			fmt.Fprintf(stdout, " join=%v", n.Channels)
		}
		if n.AutoReconnect {
			fmt.Fprint(stdout, " auto-reconnect")
		}
		fmt.Fprintln(stdout)
	}
	if cfg.TunnelEnabled {
		fmt.Fprintf(stdout, "via ssh %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ircmux – IRC session multiplexer v%s

Drives one or more IRC sessions from a single readiness loop.

Usage:
  ircmux [options] <nick> <host>[:port]       One server
  ircmux [options] --network FILE [nick]      Servers listed in FILE
  ircmux -T user@gateway <nick> <host>        Through an SSH tunnel

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  ircmux -j '#go-nuts' gopher irc.libera.chat         Plain connect
  ircmux -t -a gopher irc.libera.chat                 TLS on 6697, reconnecting
  ircmux --network ~/.ircmux.yaml -v                  Several networks
  ircmux -T admin@bastion gopher irc.internal:6667    SSH tunnel
`)
}
