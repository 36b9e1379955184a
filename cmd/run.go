package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"ircmux/config"
	"ircmux/engine"
	"ircmux/internal/metrics"
	"ircmux/internal/retry"
	"ircmux/internal/transport"
	"ircmux/irc"
	"ircmux/tunnel"
	"ircmux/util"
)

// errAllDisconnected ends the loop once no session can make progress.
var errAllDisconnected = errors.New("all sessions disconnected")

// run opens one session per target and drives them until ctx is done.
func run(ctx context.Context, cfg *config.Config, targets []config.Network) error {
	logger := util.NewLogger(cfg.Verbose)
	collector := metrics.New()
	if cfg.Metrics {
		defer func() { fmt.Fprintln(os.Stderr, collector.JSON()) }()
	}

	// ── build components ─────────────────────────────────────────
	var base transport.Dialer = &transport.TCPDialer{Timeout: cfg.Timeout}
	if cfg.TunnelEnabled {
		base = transport.NewSSHDialer(&tunnel.SSHConfig{
			User:              cfg.TunnelUser,
			Host:              cfg.TunnelHost,
			Port:              cfg.TunnelPort,
			KeyPath:           cfg.SSHKeyPath,
			PromptPass:        cfg.SSHPassword,
			UseAgent:          cfg.UseSSHAgent,
			StrictHostKey:     cfg.StrictHostKey,
			KnownHosts:        cfg.KnownHostsPath,
			ConnTimeout:       cfg.Timeout,
			KeepAliveInterval: time.Duration(cfg.KeepAliveInterval) * time.Second,
		}, logger)
	}
	defer base.Close()

	// Plain and TLS sessions share the dialer, and with it the tunnel.
	engines := make(map[bool]*engine.Engine, 2)
	engineFor := func(tls bool) *engine.Engine {
		if e, ok := engines[tls]; ok {
			return e
		}
		e := engine.New(engine.Options{
			Dialer:      base,
			TLS:         tls,
			DialTimeout: cfg.Timeout,
			Logger:      logger,
			Metrics:     collector,
		})
		engines[tls] = e
		return e
	}

	sessions := make([]*irc.Session, 0, len(targets))
	defer func() {
		for _, s := range sessions {
			if s.State() == irc.Connected {
				s.Quit("")
			}
			if err := s.Close(); err != nil {
				logger.Verbose("close %s: %v", s, err)
			}
		}
	}()

	out := newPrinter(stdout, len(targets) > 1)
	for _, n := range targets {
		s, err := irc.NewSession(engineFor(n.TLS), out.handlers(n, logger),
			irc.WithLogger(logger.With(n.Name)),
			irc.WithMetrics(collector),
			irc.WithAutoReconnect(n.AutoReconnect),
		)
		if err != nil {
			return err
		}
		sessions = append(sessions, s)

		if err := s.SetOption(irc.OptionVerifyPeer, !n.NoVerify); err != nil {
			return err
		}
		if err := s.SetOption(irc.OptionDebug, cfg.Verbose >= int(util.LogDebug)); err != nil {
			return err
		}
	}

	for i, s := range sessions {
		if err := connect(ctx, s, targets[i], logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	return loop(ctx, &irc.Scheduler{Logger: logger, Metrics: collector}, sessions, cfg.Tick, logger)
}

// connect performs the first connect of a session.  Reconnecting
// sessions retry with backoff; the rest fail fast.
func connect(ctx context.Context, s *irc.Session, n config.Network, logger *util.Logger) error {
	b := reconnectBackoff()
	return b.Do(ctx, func(attempt int) error {
		logger.Info("connecting to %s (%s:%d) as %s", n.Name, n.Host, n.Port, n.Nick)
		err := s.Connect(n.Nick, n.Host, n.Port, n.User, n.Realname)
		if err == nil {
			return nil
		}
		if !n.AutoReconnect {
			return retry.Permanent(err)
		}
		logger.Warn("%s: attempt %d: %v", n.Name, attempt, err)
		return err
	})
}

// loop ticks the scheduler until ctx is done.  A failed reconnect
// pauses the loop for a growing backoff delay before the next pass.
func loop(ctx context.Context, sc *irc.Scheduler, sessions []*irc.Session, tick time.Duration, logger *util.Logger) error {
	b := reconnectBackoff()
	failures := 0
	for ctx.Err() == nil {
		err := sc.Tick(sessions, tick)
		if err == nil {
			failures = 0
			if allDown(sessions) {
				return errAllDisconnected
			}
			continue
		}

		var rerr *irc.ReconnectError
		if !errors.As(err, &rerr) {
			return err
		}
		failures++
		logger.Warn("%v", err)
		if werr := b.Wait(ctx, failures); werr != nil {
			return nil
		}
	}
	return nil
}

// allDown reports whether every session is disconnected for good.
func allDown(sessions []*irc.Session) bool {
	for _, s := range sessions {
		if s.State() == irc.Connected || s.AutoReconnect() {
			return false
		}
	}
	return true
}

func reconnectBackoff() *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: config.DefaultReconnectDelay,
		MaxDelay:     config.DefaultMaxReconnectBackoff,
		Multiplier:   2.0,
		Jitter:       true,
	}
}
