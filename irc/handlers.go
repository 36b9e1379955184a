package irc

import (
	"sort"
	"strings"

	ircerr "ircmux/internal/errors"
)

// Handler signatures.  Arguments are positional: args starts with the
// event origin when the engine supplied one, followed by the event
// parameters in wire order.
type (
	// ConnectHandler runs once per successful connection registration.
	ConnectHandler func(s *Session)

	// NumericHandler receives every numeric reply.
	NumericHandler func(s *Session, code uint, args ...string)

	// EventHandler receives one named event kind.
	EventHandler func(s *Session, args ...string)

	// DefaultHandler receives named events that have no EventHandler of
	// their own, prefixed with the lower-cased event name.
	DefaultHandler func(s *Session, event string, args ...string)
)

// Handlers is the handler table a Session is built with.  Connect and
// Numeric are mandatory; every named slot and Default are optional.
// NewSession copies the table, so later changes do not reach a live
// session.
type Handlers struct {
	Connect ConnectHandler
	Numeric NumericHandler
	Default DefaultHandler

	events [numKinds]EventHandler
}

// On installs fn for kind k, replacing any previous handler, and
// returns h for chaining.
func (h *Handlers) On(k Kind, fn EventHandler) *Handlers {
	if k >= 0 && k < numKinds {
		h.events[k] = fn
	}
	return h
}

// Handler returns the handler installed for k, or nil.
func (h *Handlers) Handler(k Kind) EventHandler {
	if k < 0 || k >= numKinds {
		return nil
	}
	return h.events[k]
}

func (h *Handlers) validate() error {
	if h.Connect == nil {
		return &ircerr.ConfigError{Key: keyConnect, Message: "required handler missing"}
	}
	if h.Numeric == nil {
		return &ircerr.ConfigError{Key: keyNumeric, Message: "required handler missing"}
	}
	return nil
}

// HandlersFromMap builds a handler table from a loosely typed mapping,
// the shape an embedding scripting host naturally produces.  Keys are
// matched case-insensitively against "connect", "numeric", "default",
// and the Kind names.  A nil value counts as absent.
//
// It fails with a *ConfigError when a key is unrecognized or repeated,
// when "connect" or "numeric" is missing, or when a value is not a
// function of the slot's shape.  The error's Key is always the
// lower-cased key, whatever case the caller used.
func HandlersFromMap(m map[string]any) (Handlers, error) {
	var h Handlers

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]bool, len(keys))
	for _, raw := range keys {
		key := strings.ToLower(raw)
		if seen[key] {
			return Handlers{}, &ircerr.ConfigError{Key: key, Message: "duplicate handler key"}
		}
		seen[key] = true

		v := m[raw]
		if v == nil {
			if _, ok := ParseKind(key); !ok && !isReservedKey(key) {
				return Handlers{}, &ircerr.ConfigError{Key: key, Message: "unrecognized handler key"}
			}
			continue
		}

		if err := h.set(key, v); err != nil {
			return Handlers{}, err
		}
	}

	if err := h.validate(); err != nil {
		return Handlers{}, err
	}
	return h, nil
}

func isReservedKey(key string) bool {
	return key == keyConnect || key == keyNumeric || key == keyDefault
}

// set stores v under key, converting plain funcs to handler types.
// Typed nil funcs are left as absent.
func (h *Handlers) set(key string, v any) error {
	wrongType := &ircerr.ConfigError{Key: key, Value: v, Message: "expected a function"}

	switch key {
	case keyConnect:
		switch fn := v.(type) {
		case ConnectHandler:
			h.Connect = fn
		case func(*Session):
			h.Connect = fn
		default:
			wrongType.Message = "expected func(*Session)"
			return wrongType
		}
		return nil

	case keyNumeric:
		switch fn := v.(type) {
		case NumericHandler:
			h.Numeric = fn
		case func(*Session, uint, ...string):
			h.Numeric = fn
		default:
			wrongType.Message = "expected func(*Session, uint, ...string)"
			return wrongType
		}
		return nil

	case keyDefault:
		switch fn := v.(type) {
		case DefaultHandler:
			h.Default = fn
		case func(*Session, string, ...string):
			h.Default = fn
		default:
			wrongType.Message = "expected func(*Session, string, ...string)"
			return wrongType
		}
		return nil
	}

	k, ok := ParseKind(key)
	if !ok {
		return &ircerr.ConfigError{Key: key, Message: "unrecognized handler key"}
	}
	switch fn := v.(type) {
	case EventHandler:
		h.events[k] = fn
	case func(*Session, ...string):
		h.events[k] = fn
	default:
		wrongType.Message = "expected func(*Session, ...string)"
		return wrongType
	}
	return nil
}
