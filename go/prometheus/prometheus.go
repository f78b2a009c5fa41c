package prometheus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Opts holds prometheus opts.
type Opts struct {
	Disable bool `long:"disable" env:"DISABLE" description:"Set to true to disable prometheus metrics"`
	Port    int  `long:"port" env:"PORT" description:"Port to serve Prometheus metrics on" default:"13434"`
}

// Enabled returns true if the metrics server is enabled.
func (o *Opts) Enabled() bool {
	return o != nil && !o.Disable
}

// Server serves the Prometheus metrics endpoint.
type Server struct {
	opts   *Opts
	log    *slog.Logger
	server *http.Server
}

// NewServer creates a new metrics server.
func NewServer(opts *Opts) *Server {
	return &Server{
		opts: opts,
		log:  slog.Default(),
	}
}

// WithLogger sets this server's logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// Serve starts the metrics server.
func (s *Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.opts.Port),
		Handler: mux,
	}

	s.log.InfoContext(ctx, "serving Prometheus metrics", "port", s.opts.Port, "endpoint", "/metrics")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("prometheus server exited unexpectedly: %w", err)
	}
	return nil
}

// GracefulStop gracefully stops the metrics server.
func (s *Server) GracefulStop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info("stopping Prometheus server")
	return s.server.Shutdown(ctx)
}
