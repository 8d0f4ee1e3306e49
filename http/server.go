// Package http serves the demo apps: HTML forms, a JSON prediction API, the
// prediction history and a websocket feed.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"modeldemos/apps"
	"modeldemos/db"
	"modeldemos/monitoring"
)

// Server serves the demo pages and API.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig holds the listener and request limits.
type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
}

// DefaultServerConfig mirrors config.Default.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxUploadBytes: 10 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// PredictionStore persists finished predictions.
type PredictionStore interface {
	Record(ctx context.Context, e apps.Event) error
	Query(ctx context.Context, app string, limit int) ([]db.Entry, error)
	// Count reports how many predictions of app are stored, including those
	// of earlier runs.
	Count(ctx context.Context, app string) (int, error)
}

// Feed publishes prediction events to live subscribers.
type Feed interface {
	Publish(e apps.Event)
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// Metrics counts prediction outcomes and exports them.
type Metrics interface {
	Observe(app string, outcome monitoring.Outcome, took time.Duration)
	Snapshot() []monitoring.AppStats
	SystemStats() map[string]any
	ExportPrometheus(w io.Writer) error
}

// Deps are the collaborators of the handlers. Store, Feed and Metrics are
// optional.
type Deps struct {
	Registry *apps.Registry
	History  *apps.History
	Store    PredictionStore
	Feed     Feed
	Metrics  Metrics
	Logger   *zap.Logger
}

// NewServer builds the handler from deps and a listener on config.Port.
func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	handler, err := NewHandler(config, deps)
	if err != nil {
		return nil, err
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
		logger: deps.Logger,
	}, nil
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(config ServerConfig, deps Deps) (http.Handler, error) {
	if deps.Registry == nil || deps.History == nil || deps.Logger == nil {
		return nil, errors.New("registry, history and logger are required")
	}
	h, err := newHandlers(deps, config.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	h.register(mux)

	chain := Chain(
		RecoveryMiddleware(deps.Logger),
		LoggerMiddleware(deps.Logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxUploadBytes),
	)
	return chain(mux), nil
}

// Start blocks until the server stops; a clean Stop returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
