package irc

import (
	"context"
	"time"

	ircerr "ircmux/internal/errors"
	"ircmux/internal/metrics"
	"ircmux/util"
)

// DefaultTimeout is the readiness wait used by Run when none is given.
const DefaultTimeout = 250 * time.Millisecond

// Scheduler advances many sessions with one shared readiness wait per
// tick.  The zero value is ready to use and waits with select(2).
type Scheduler struct {
	Waiter  Waiter
	Logger  *util.Logger
	Metrics *metrics.Collector

	set *Descriptors
}

// Tick runs one pass over sessions in the order given:
//
//  1. Each session due for reconnect reconnects.  The first failure
//     aborts the tick and is returned; later sessions are not touched.
//  2. Every session registers its descriptors in one shared set.  A
//     descriptor outside the select range is logged against its own
//     session and left out; the other sessions wait as usual.
//  3. One readiness wait runs over the whole set.  A failed wait is
//     logged and the tick continues with nothing ready.
//  4. Each session processes ready I/O.  A session left disconnected
//     by a processing failure reconnects if due; those failures are
//     joined into the result without stopping the pass.
//
// Closed sessions are skipped.
func (sc *Scheduler) Tick(sessions []*Session, timeout time.Duration) error {
	for _, s := range sessions {
		if s.closed || !s.reconnectDue() {
			continue
		}
		if err := s.reconnect(); err != nil {
			return err
		}
	}

	if sc.set == nil {
		sc.set = NewDescriptors()
	}
	set := sc.set
	set.Reset()
	for _, s := range sessions {
		if !s.closed {
			s.addDescriptors(set)
		}
	}

	if err := sc.waiter().Wait(set, timeout); err != nil {
		werr := &ircerr.WaitError{Err: err}
		sc.logger().Warn("%v", werr)
		sc.Metrics.WaitFailed()
		sc.Metrics.RecordError(werr.Error())
		set.clearReady()
	}
	sc.Metrics.Tick()

	var errs []error
	for _, s := range sessions {
		if s.closed {
			continue
		}
		if err := s.process(set); err != nil {
			errs = append(errs, err)
		}
	}
	return ircerr.Join(errs...)
}

// Run ticks until ctx is done or a tick fails.  Cancellation is only
// observed between ticks, so timeout bounds how long shutdown takes.
// A non-positive timeout selects DefaultTimeout.  Run returns nil on
// cancellation.
func (sc *Scheduler) Run(ctx context.Context, sessions []*Session, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := sc.Tick(sessions, timeout); err != nil {
			return err
		}
	}
}

func (sc *Scheduler) waiter() Waiter {
	if sc.Waiter == nil {
		return SelectWaiter{}
	}
	return sc.Waiter
}

func (sc *Scheduler) logger() *util.Logger {
	if sc.Logger == nil {
		return util.Nop()
	}
	return sc.Logger
}
