package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// Server runs one net/http server with a bounded graceful drain. Shutdown is
// driven entirely by the context passed to Run; signal handling belongs to
// the caller, which typically wraps its root context with
// signal.NotifyContext so every component stops together.
type Server struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	log             *slog.Logger

	running atomic.Bool
}

// New creates a Server with production-safe defaults, overridable per option.
func New(opts ...Option) *Server {
	s := &Server{
		addr:            ":8080",
		readTimeout:     30 * time.Second,
		writeTimeout:    30 * time.Second,
		idleTimeout:     120 * time.Second,
		shutdownTimeout: 5 * time.Second,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens on the configured address and serves handler until ctx is
// cancelled, then drains in-flight requests within the shutdown timeout.
// A clean drain returns nil; bind and accept failures are wrapped with
// ErrStart, an overrun drain with ErrShutdown.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: already running", ErrStart)
	}
	defer s.running.Store(false)

	srv := &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}

	s.log.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		// Serve only returns ahead of shutdown when the listener broke.
		return errors.Join(ErrStart, err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return errors.Join(ErrShutdown, err)
	}
	<-serveErr // Serve has returned http.ErrServerClosed at this point

	s.log.InfoContext(ctx, "http server stopped")
	return nil
}
