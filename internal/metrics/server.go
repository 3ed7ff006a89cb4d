package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/systmms/secretctl/internal/logging"
)

// ServerConfig holds configuration for the metrics HTTP server.
type ServerConfig struct {
	// Enabled indicates whether the metrics server should run.
	Enabled bool

	// Listen is the address to listen on, e.g. ":9090".
	Listen string

	// Path is the path to serve metrics on.
	Path string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns the default metrics server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:      false,
		Listen:       ":9090",
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server provides an HTTP server for Prometheus metrics. Long-running
// commands start it when metrics.enabled is set in the configuration.
type Server struct {
	config ServerConfig
	logger *logging.Logger
	server *http.Server
}

// NewServer creates a new metrics server.
func NewServer(config ServerConfig, logger *logging.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
	}
}

// Start starts the metrics HTTP server in the background. It is a no-op
// when the server is disabled.
func (s *Server) Start() error {
	if !s.config.Enabled {
		return nil
	}

	Init()

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.Handler())

	// Simple liveness endpoint next to the scrape path
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics are non-critical, log and carry on
			s.logger.Warn("metrics server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}
