package httpserver

import (
	"log/slog"
	"time"
)

// Option configures a Server at construction time. Options with invalid
// values panic so a broken deployment config stops the process at startup
// instead of serving with silently ignored settings.
type Option func(*Server)

// WithAddr sets the listen address, e.g. ":8080" or "127.0.0.1:0".
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: addr must not be empty")
	}
	return func(s *Server) { s.addr = addr }
}

// WithReadTimeout bounds reading one request, header included.
func WithReadTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: read timeout must be positive")
	}
	return func(s *Server) { s.readTimeout = d }
}

// WithWriteTimeout bounds writing one response.
func WithWriteTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: write timeout must be positive")
	}
	return func(s *Server) { s.writeTimeout = d }
}

// WithIdleTimeout bounds how long a keep-alive connection may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: idle timeout must be positive")
	}
	return func(s *Server) { s.idleTimeout = d }
}

// WithShutdownTimeout bounds the graceful drain once Run's context is
// cancelled; requests still in flight after it are cut off.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: shutdown timeout must be positive")
	}
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithLogger sets the structured logger. A nil logger is ignored and the
// slog default stays in place.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}
