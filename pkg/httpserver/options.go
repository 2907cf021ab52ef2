package httpserver

import "log/slog"

// Option configures a Server.
type Option func(*Server)

// WithLogger supplies the server logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStartHook registers a callback that runs once the listener is bound.
func WithStartHook(h Hook) Option {
	return func(s *Server) {
		if h != nil {
			s.startHooks = append(s.startHooks, h)
		}
	}
}

// WithStopHook registers a callback that runs after the server has drained,
// e.g. to stop background tasks. Stop hooks run in reverse registration order.
func WithStopHook(h Hook) Option {
	return func(s *Server) {
		if h != nil {
			s.stopHooks = append(s.stopHooks, h)
		}
	}
}
