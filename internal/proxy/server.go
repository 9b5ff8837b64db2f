package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"promptreel/internal/config"
	"promptreel/internal/logging"
	"promptreel/internal/provider"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "promptreel-proxy"

const (
	routeGenerate = "/api/generate-video"
	routeHealth   = "/api/health"
	routeMetrics  = "/metrics"

	defaultWriteTimeout = 30 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// Server serves the proxy routes.
type Server struct {
	bind     string
	token    string
	origins  []string
	provider provider.Provider
	logger   *slog.Logger
	metrics  *metrics
	now      func() time.Time

	handler http.Handler
	server  *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New wires the router for cfg and p. Metrics are registered on a private
// registry so tests can build several servers in one process.
func New(cfg *config.Config, p provider.Provider, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("proxy: config is required")
	}
	if p == nil {
		return nil, errors.New("proxy: provider is required")
	}
	s := &Server{
		bind:     strings.TrimSpace(cfg.Proxy.Bind),
		token:    strings.TrimSpace(cfg.Proxy.APIToken),
		origins:  append([]string(nil), cfg.Proxy.AllowedOrigins...),
		provider: p,
		logger:   logging.NewComponentLogger(logger, "proxy"),
		now:      time.Now,
	}
	if cfg.Proxy.MetricsEnabled {
		s.metrics = newMetrics()
	}

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.Handle(routeGenerate, authMiddleware(s.token, http.HandlerFunc(s.handleGenerate))).Methods(http.MethodPost)
	r.Handle(routeGenerate, authMiddleware(s.token, http.HandlerFunc(s.handleStatus))).Methods(http.MethodGet)
	r.HandleFunc(routeHealth, s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle(routeMetrics, s.metrics.handler()).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.handler = requestIDMiddleware(corsMiddleware(s.origins, r))

	writeTimeout := defaultWriteTimeout
	if providerTimeout := time.Duration(cfg.Provider.TimeoutSeconds)*time.Second + 5*time.Second; providerTimeout > writeTimeout {
		writeTimeout = providerTimeout
	}
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx is done
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("proxy: bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("proxy listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("proxy server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("proxy listening",
		logging.String("address", listener.Addr().String()),
		logging.String("provider", s.provider.Name()),
		logging.Bool("auth_required", s.token != ""),
		logging.Bool("metrics_enabled", s.metrics != nil),
	)
	return nil
}

// Addr reports the bound address once Start succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}
