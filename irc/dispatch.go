package irc

import "strings"

// sessionSink adapts a Session to EventSink without putting the sink
// methods on the public Session API.
type sessionSink struct{ s *Session }

func (k sessionSink) Event(name, origin string, params []string) {
	k.s.dispatchEvent(name, origin, params)
}

func (k sessionSink) Numeric(code uint, origin string, params []string) {
	k.s.dispatchNumeric(code, origin, params)
}

func (k sessionSink) Connected() {
	k.s.metrics.EventDispatched()
	k.s.handlers.Connect(k.s)
}

// dispatchEvent routes one named event.  Exactly one of the specific
// handler or the default handler runs, or the event is dropped.
func (s *Session) dispatchEvent(name, origin string, params []string) {
	name = strings.ToLower(name)

	// Self NICK is applied before any handler sees the event.
	if name == KindNick.String() && len(params) > 0 {
		if s.nickname == "" || origin == s.nickname {
			s.nickname = params[0]
		}
	}

	args := withOrigin(origin, params)

	if k, ok := ParseKind(name); ok {
		if h := s.handlers.events[k]; h != nil {
			s.metrics.EventDispatched()
			h(s, args...)
			return
		}
	}
	if s.handlers.Default != nil {
		s.metrics.EventDispatched()
		s.handlers.Default(s, name, args...)
		return
	}

	s.metrics.EventDropped()
	s.log.Debug("no handler for %s event", name)
}

func (s *Session) dispatchNumeric(code uint, origin string, params []string) {
	s.metrics.NumericDispatched()
	s.handlers.Numeric(s, code, withOrigin(origin, params)...)
}

// withOrigin prepends origin to params unless it is empty.
func withOrigin(origin string, params []string) []string {
	if origin == "" {
		return params
	}
	args := make([]string, 0, len(params)+1)
	args = append(args, origin)
	return append(args, params...)
}
