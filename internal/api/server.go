package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/devspace-core/internal/infrastructure/config"
	"github.com/nerrad567/devspace-core/internal/infrastructure/logging"
	"github.com/nerrad567/devspace-core/internal/layout"
	"github.com/nerrad567/devspace-core/internal/output"
	"github.com/nerrad567/devspace-core/internal/remote"
	"github.com/nerrad567/devspace-core/internal/space"
	"github.com/nerrad567/devspace-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Loop        *space.Loop
	Space       *space.Manager
	Layout      *layout.Engine
	Interpreter *output.Interpreter
	Provisioner *output.Provisioner
	Hub         *Hub

	// Optional.
	History  telemetry.HistoryRepository
	Sink     *telemetry.Sink
	Runner   *remote.Runner
	MQTT     BrokerStatus
	DB       *sql.DB
	Gatherer prometheus.Gatherer
	OnOutput func(output.Summary)
	Session  string
	Version  string
}

// BrokerStatus reports MQTT connectivity. *mqtt.Client satisfies it.
type BrokerStatus interface {
	IsConnected() bool
}

// Server is the HTTP API server.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	loop        *space.Loop
	space       *space.Manager
	layout      *layout.Engine
	interpreter *output.Interpreter
	provisioner *output.Provisioner
	hub         *Hub
	history     telemetry.HistoryRepository
	sink        *telemetry.Sink
	runner      *remote.Runner
	mqtt        BrokerStatus
	db          *sql.DB
	gatherer    prometheus.Gatherer
	onOutput    func(output.Summary)
	session     string
	version     string
	started     time.Time

	server *http.Server
	cancel context.CancelFunc
}

// New creates a new API server. It is not listening until Start.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Loop == nil:
		return nil, fmt.Errorf("space loop is required")
	case deps.Space == nil:
		return nil, fmt.Errorf("space manager is required")
	case deps.Layout == nil:
		return nil, fmt.Errorf("layout engine is required")
	case deps.Interpreter == nil:
		return nil, fmt.Errorf("output interpreter is required")
	case deps.Provisioner == nil:
		return nil, fmt.Errorf("accessory provisioner is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		loop:        deps.Loop,
		space:       deps.Space,
		layout:      deps.Layout,
		interpreter: deps.Interpreter,
		provisioner: deps.Provisioner,
		hub:         hub,
		history:     deps.History,
		sink:        deps.Sink,
		runner:      deps.Runner,
		mqtt:        deps.MQTT,
		db:          deps.DB,
		gatherer:    deps.Gatherer,
		onOutput:    deps.OnOutput,
		session:     deps.Session,
		version:     deps.Version,
		started:     time.Now(),
	}

	hub.SetResizeHandler(s.layout.Resize)
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the hub and the HTTP listener in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close waits up to gracefulShutdownTimeout for in-flight requests, then
// closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// do runs fn on the space event loop for the request.
func (s *Server) do(r *http.Request, fn func() error) error {
	return s.loop.Do(r.Context(), fn)
}
