// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a set of IRC sessions.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for the sessions it is handed to.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsOpen  atomic.Int64
	sessionsTotal atomic.Int64
	connects      atomic.Int64
	reconnects    atomic.Int64
	events        atomic.Int64
	eventsDropped atomic.Int64
	numerics      atomic.Int64
	commands      atomic.Int64
	ticks         atomic.Int64
	waitErrors    atomic.Int64
	errorsTotal   atomic.Int64
	bytesIn       atomic.Int64
	bytesOut      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the open and total session counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsOpen.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the open session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsOpen.Add(-1)
}

// OpenSessions returns the number of sessions not yet closed.
func (c *Collector) OpenSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsOpen.Load()
}

// Connected records a successful explicit connect.
func (c *Collector) Connected() {
	if c == nil {
		return
	}
	c.connects.Add(1)
}

// Reconnected records an automatic reconnect attempt.
func (c *Collector) Reconnected() {
	if c == nil {
		return
	}
	c.reconnects.Add(1)
}

// Reconnects returns the total number of reconnect attempts.
func (c *Collector) Reconnects() int64 {
	if c == nil {
		return 0
	}
	return c.reconnects.Load()
}

// ── Dispatch metrics ─────────────────────────────────────────────────

// EventDispatched records a named event delivered to a handler.
func (c *Collector) EventDispatched() {
	if c == nil {
		return
	}
	c.events.Add(1)
}

// EventDropped records a named event with no handler.
func (c *Collector) EventDropped() {
	if c == nil {
		return
	}
	c.eventsDropped.Add(1)
}

// NumericDispatched records a numeric reply delivered to the numeric handler.
func (c *Collector) NumericDispatched() {
	if c == nil {
		return
	}
	c.numerics.Add(1)
}

// Events returns the number of named events delivered to handlers.
func (c *Collector) Events() int64 {
	if c == nil {
		return 0
	}
	return c.events.Load()
}

// Dropped returns the number of named events dropped.
func (c *Collector) Dropped() int64 {
	if c == nil {
		return 0
	}
	return c.eventsDropped.Load()
}

// CommandSent records a command accepted by the engine.
func (c *Collector) CommandSent() {
	if c == nil {
		return
	}
	c.commands.Add(1)
}

// Tick records one scheduler pass.
func (c *Collector) Tick() {
	if c == nil {
		return
	}
	c.ticks.Add(1)
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// ── Error metrics ────────────────────────────────────────────────────

// WaitFailed records a failed readiness wait.
func (c *Collector) WaitFailed() {
	if c == nil {
		return
	}
	c.waitErrors.Add(1)
}

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsOpen     int64  `json:"sessions_open"`
	SessionsTotal    int64  `json:"sessions_total"`
	Connects         int64  `json:"connects"`
	Reconnects       int64  `json:"reconnects"`
	Events           int64  `json:"events"`
	EventsDropped    int64  `json:"events_dropped"`
	Numerics         int64  `json:"numerics"`
	Commands         int64  `json:"commands"`
	Ticks            int64  `json:"ticks"`
	WaitErrors       int64  `json:"wait_errors"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:        time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsOpen:  c.sessionsOpen.Load(),
		SessionsTotal: c.sessionsTotal.Load(),
		Connects:      c.connects.Load(),
		Reconnects:    c.reconnects.Load(),
		Events:        c.events.Load(),
		EventsDropped: c.eventsDropped.Load(),
		Numerics:      c.numerics.Load(),
		Commands:      c.commands.Load(),
		Ticks:         c.ticks.Load(),
		WaitErrors:    c.waitErrors.Load(),
		BytesIn:       c.bytesIn.Load(),
		BytesOut:      c.bytesOut.Load(),
		ErrorsTotal:   c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
