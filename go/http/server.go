package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/malonaz/meme-api/go/certs"
)

// Opts holds HTTP server options.
type Opts struct {
	Port                int           `long:"port" env:"PORT" description:"Port to serve HTTP on" default:"8080"`
	ReadTimeout         time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"30s"`
	WriteTimeout        time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"HTTP write timeout" default:"30s"`
	IdleTimeout         time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT"  description:"HTTP idle timeout" default:"120s"`
	GracefulStopTimeout int           `long:"graceful-stop-timeout" env:"GRACEFUL_STOP_TIMEOUT" description:"How many seconds to wait for graceful stop." default:"30"`
	TLS                 *certs.Opts   `group:"TLS" namespace:"tls" env-namespace:"TLS"`
}

// Server holds the HTTP server state.
type Server struct {
	opts        *Opts
	log         *slog.Logger
	httpServer  *http.Server
	mux         *http.ServeMux
	middlewares []Middleware
	register    func(*Server) error
	patternSet  map[string]struct{}
}

// NewServer creates a new HTTP server. The register callback runs when Serve
// starts, after middleware wiring is final.
func NewServer(opts *Opts, register func(*Server) error) *Server {
	return &Server{
		opts:       opts,
		log:        slog.Default(),
		mux:        http.NewServeMux(),
		register:   register,
		patternSet: map[string]struct{}{},
	}
}

// WithLogger sets this server's logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// WithMiddleware appends middlewares applied to every route, outermost first.
func (s *Server) WithMiddleware(middlewares ...Middleware) *Server {
	s.middlewares = append(s.middlewares, middlewares...)
	return s
}

// RegisterRoute registers a handler for the given pattern.
func (s *Server) RegisterRoute(pattern string, handler func(http.ResponseWriter, *http.Request)) error {
	if _, ok := s.patternSet[pattern]; ok {
		return fmt.Errorf("duplicate pattern registered [%s]", pattern)
	}
	s.patternSet[pattern] = struct{}{}
	s.mux.HandleFunc(pattern, handler)
	return nil
}

// Serve the HTTP server.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.register(s); err != nil {
		return fmt.Errorf("registering routes: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.opts.Port),
		Handler:      Chain(s.mux, s.middlewares...),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	if s.opts.TLS.Enabled() {
		tlsConfig, err := s.opts.TLS.ServerTLSConfig()
		if err != nil {
			return fmt.Errorf("building TLS config: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
		s.log.InfoContext(ctx, "starting HTTPS server", "port", s.opts.Port)
		if err := s.httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTPS server exited unexpectedly: %w", err)
		}
		return nil
	}

	s.log.InfoContext(ctx, "starting HTTP server", "port", s.opts.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server exited unexpectedly: %w", err)
	}
	return nil
}

// Stop immediately stops the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("stopping HTTP server")
	return s.httpServer.Close()
}

// GracefulStop gracefully stops the HTTP server.
func (s *Server) GracefulStop() error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("gracefully stopping HTTP server")
	duration := time.Duration(s.opts.GracefulStopTimeout) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err == context.DeadlineExceeded {
		s.log.Warn("graceful shutdown timed out")
		// Force close any remaining connections
		return s.Stop()
	}
	return err
}
