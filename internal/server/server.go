// Package server exposes a leodocs engine over HTTP.
//
// Routes:
//
//	POST /v1/render  render a JSON request into a DOCX attachment
//	GET  /healthz    liveness probe
//	GET  /metrics    Prometheus metrics
//
// Every response carries an X-Request-ID header. Render requests pass through
// a token bucket limiter; health and metrics requests do not.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/leoforge/go-leodocs/internal/config"
	"github.com/leoforge/go-leodocs/pkg/leodocs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Server serves render requests for one engine.
type Server struct {
	engine   *leodocs.Engine
	config   *config.Config
	logger   *leodocs.Logger
	gatherer prometheus.Gatherer
	limiter  *rate.Limiter
	handler  http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server. A nil gatherer serves the default Prometheus registry.
func New(engine *leodocs.Engine, cfg *config.Config, logger *leodocs.Logger, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = leodocs.NopLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		engine:   engine,
		config:   cfg,
		logger:   logger,
		gatherer: gatherer,
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.Burst)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/render", s.rateLimit(http.HandlerFunc(s.handleRender)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return s.requestID(s.logRequests(s.recoverPanics(mux)))
}

// Handler returns the server's root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is cancelled
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or Shutdown is
// called. Cancelling ctx shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	drained := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(drained)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown incomplete: %v", err)
		}
	})

	s.logger.WithField("addr", ln.Addr().String()).Info("Serving")
	err := srv.Serve(ln)
	if !stop() {
		// in-flight requests finish before the engine is released
		<-drained
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("Shutting down server")
	return srv.Shutdown(ctx)
}
