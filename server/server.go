package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server runs an HTTP handler until its context is cancelled.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          Logger
}

// New creates a Server listening on addr. A zero shutdownTimeout means
// 15 seconds.
func New(addr string, handler http.Handler, readHeaderTimeout, shutdownTimeout time.Duration, logger Logger) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if s.logger != nil {
			s.logger.Info("server listening", "addr", ln.Addr().String())
		}
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if s.logger != nil {
			s.logger.Info("server shutting down")
		}
		return s.srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
