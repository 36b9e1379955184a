// Package errors provides domain-specific error types for ircmux.
//
// Transport failures carry structured context (operation, address,
// retryability); session failures follow the taxonomy surfaced to
// embedding hosts: configuration, session creation, connect, reconnect,
// command, and readiness-wait errors.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrTunnelClosed     = errors.New("tunnel is closed")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrTimeout          = errors.New("operation timed out")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrSessionClosed    = errors.New("session is closed")
	ErrNoIdentity       = errors.New("no prior identity")
)

// ── Transport errors ─────────────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "handshake", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ── Session errors ───────────────────────────────────────────────────

// ConfigError reports a malformed handler set or an unknown option.
type ConfigError struct {
	Key     string      // handler key or option name
	Value   interface{} // offending value (nil if missing)
	Message string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: %q", e.Key)
	if e.Value != nil {
		msg += fmt.Sprintf(" (%T)", e.Value)
	}
	return msg + ": " + e.Message
}

// SessionCreationError reports that the protocol engine could not
// allocate a connection handle.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("couldn't create session: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// ConnectError reports a failed explicit connect.
type ConnectError struct {
	Host   string
	Port   int
	Reason string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s", net.JoinHostPort(e.Host, fmt.Sprint(e.Port)), e.Reason)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ReconnectError reports a failed automatic reconnect.
type ReconnectError struct {
	Session string // session description, "nick <host:port>"
	Reason  string
	Err     error
}

func (e *ReconnectError) Error() string {
	if e.Session == "" {
		return "reconnect: " + e.Reason
	}
	return fmt.Sprintf("reconnect %s: %s", e.Session, e.Reason)
}

func (e *ReconnectError) Unwrap() error { return e.Err }

// CommandError reports a command the engine rejected.
type CommandError struct {
	Op     string // "join", "part", "privmsg", ...
	Reason string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *CommandError) Unwrap() error { return e.Err }

// WaitError reports a failure of the readiness-wait primitive itself.
type WaitError struct {
	Err error
}

func (e *WaitError) Error() string { return fmt.Sprintf("readiness wait: %v", e.Err) }

func (e *WaitError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// Connect wraps an engine connect failure.
func Connect(host string, port int, err error) *ConnectError {
	return &ConnectError{Host: host, Port: port, Reason: describe(err), Err: err}
}

// Reconnect wraps an engine reconnect failure for the named session.
func Reconnect(session string, err error) *ReconnectError {
	return &ReconnectError{Session: session, Reason: describe(err), Err: err}
}

// Command wraps an engine command rejection.
func Command(op string, err error) *CommandError {
	return &CommandError{Op: op, Reason: describe(err), Err: err}
}

func describe(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
