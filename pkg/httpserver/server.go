package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrymomot/crmb/pkg/logger"
)

// Hook runs around the server lifecycle. A failing hook is logged and does
// not stop the lifecycle.
type Hook func(ctx context.Context, log *slog.Logger) error

// Server wraps http.Server with graceful shutdown, lifecycle hooks and logging.
type Server struct {
	cfg        Config
	log        *slog.Logger
	startHooks []Hook
	stopHooks  []Hook

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	once     sync.Once
}

// New returns a Server configured from cfg.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{cfg: cfg.withDefaults(), log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the address the server listens on, or "" before Run.
// Useful with ":0" addresses.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the HTTP server and blocks until ctx is done, SIGINT or SIGTERM
// arrives, or Shutdown is called. Start hooks run once the listener is bound;
// stop hooks run after the server has drained, in reverse order.
// It returns ErrStart wrapped with the underlying error if the server fails to start.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, err)
	}
	s.srv, s.listener = srv, ln
	s.mu.Unlock()

	s.log.InfoContext(ctx, "http server started", slog.String("addr", ln.Addr().String()))
	runHooks(ctx, s.log, "start", s.startHooks)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		s.log.InfoContext(ctx, "http server shutting down")
		runErr = s.Shutdown(context.WithoutCancel(ctx))
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			runErr = errors.Join(runErr, serveErr)
		}
	case runErr = <-errCh:
		// Shutdown was called directly or Serve failed.
		if errors.Is(runErr, http.ErrServerClosed) {
			runErr = nil
		} else {
			runErr = errors.Join(ErrStart, runErr)
		}
	}
	return runErr
}

// Shutdown stops the server gracefully and runs the stop hooks.
// It is safe for repeated calls.
// Any error from http.Server.Shutdown is wrapped with ErrShutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		err = srv.Shutdown(ctx)

		hooks := make([]Hook, len(s.stopHooks))
		for i, h := range s.stopHooks {
			hooks[len(hooks)-1-i] = h
		}
		runHooks(ctx, s.log, "stop", hooks)
		s.log.InfoContext(ctx, "http server stopped")
	})

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}

func runHooks(ctx context.Context, log *slog.Logger, stage string, hooks []Hook) {
	for _, h := range hooks {
		if err := h(ctx, log); err != nil {
			log.ErrorContext(ctx, "server hook failed",
				slog.String("stage", stage),
				logger.Error(err),
			)
		}
	}
}
