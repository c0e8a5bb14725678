package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/twscan/pkg/logger"
)

// Default timeouts. WriteTimeout covers POST /api/scan?wait=true, which
// holds the response for a whole scan.
const (
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 15 * time.Minute
	DefaultIdleTimeout  = 60 * time.Second
)

// Server is the HTTP front of the scanner
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// ServerOption customizes a Server
type ServerOption func(*http.Server)

// WithWriteTimeout overrides DefaultWriteTimeout
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *http.Server) { s.WriteTimeout = d }
}

// WithOnShutdown runs fn when Shutdown starts. Hijacked connections
// (websocket streams) are not closed by net/http, so their owner hooks in here.
func WithOnShutdown(fn func()) ServerOption {
	return func(s *http.Server) { s.RegisterOnShutdown(fn) }
}

// New creates a server listening on addr (":8089")
func New(addr string, handler http.Handler, log *logger.Logger, opts ...ServerOption) *Server {
	hs := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(hs)
	}
	return &Server{httpServer: hs, logger: log.WithModule("api")}
}

// Start listens on the configured address and blocks until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown; a clean stop returns nil
func (s *Server) Serve(ln net.Listener) error {
	s.logger.WithField("addr", ln.Addr().String()).Info("Starting API server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
