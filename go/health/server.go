package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Opts holds health opts.
type Opts struct {
	Disable        bool `long:"disable" env:"DISABLE" description:"Set to true to disable the health server"`
	Port           int  `long:"port" env:"PORT" description:"Port to serve health checks on" default:"4040"`
	TimeoutSeconds int  `long:"timeout-seconds" env:"TIMEOUT_SECONDS" description:"Health check timeout in seconds" default:"30"`
}

// Enabled returns true if the health server is enabled.
func (o *Opts) Enabled() bool {
	return o != nil && !o.Disable
}

// Server serves liveness and readiness endpoints over HTTP.
type Server struct {
	opts       *Opts
	log        *slog.Logger
	check      Check
	ready      bool
	mutex      sync.RWMutex
	httpServer *http.Server
}

// NewServer creates a new health check server.
func NewServer(opts *Opts) *Server {
	return &Server{
		opts:  opts,
		log:   slog.Default(),
		check: CombineChecks(),
	}
}

// WithLogger sets this server's logger.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// RegisterChecks sets the checks run by the readiness endpoint.
func (s *Server) RegisterChecks(checks ...Check) {
	s.check = CombineChecks(checks...)
	s.log.Debug("registered health checks", "checks", len(checks))
}

// MarkReady marks the server as ready to serve traffic.
// This should be called when your application has finished initialization.
func (s *Server) MarkReady() {
	s.mutex.Lock()
	s.ready = true
	s.mutex.Unlock()
	s.log.Info("health server marked as ready")
}

func (s *Server) isReady() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ready
}

// Serve starts the HTTP health check server.
func (s *Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/liveness", func(w http.ResponseWriter, r *http.Request) {
		if !s.isReady() {
			http.Error(w, "Server not ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readiness", func(w http.ResponseWriter, r *http.Request) {
		if !s.isReady() {
			s.log.DebugContext(r.Context(), "readiness check failed: server not ready")
			http.Error(w, "Server not ready", http.StatusServiceUnavailable)
			return
		}
		checkCtx, cancel := context.WithTimeout(r.Context(), time.Duration(s.opts.TimeoutSeconds)*time.Second)
		defer cancel()
		if err := s.check(checkCtx); err != nil {
			s.log.WarnContext(r.Context(), "readiness check failed", "error", err)
			http.Error(w, fmt.Sprintf("Readiness check failed: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.opts.Port),
		Handler: mux,
	}

	s.log.InfoContext(ctx, "serving health checks", "port", s.opts.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server exited unexpectedly: %w", err)
	}
	return nil
}

// Stop immediately stops the health server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("stopping health server")
	return s.httpServer.Close()
}

// GracefulStop gracefully stops the health server.
func (s *Server) GracefulStop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("gracefully stopping health server")
	return s.httpServer.Shutdown(ctx)
}
