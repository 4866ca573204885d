package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/bridge"
	"github.com/nerrad567/tuya-ce-core/internal/catalog"
	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/gapanalysis"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/logging"
	"github.com/nerrad567/tuya-ce-core/internal/platform"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Catalog is the capability catalog the API reads and refreshes.
// It is satisfied by *catalog.Store.
type Catalog interface {
	Snapshot() *catalog.Snapshot
	Load(ctx context.Context, force bool) error
}

// Bridge is the subset of the MQTT bridge the API uses.
// It is satisfied by *bridge.Bridge.
type Bridge interface {
	RefreshCatalog(ctx context.Context) error
	GetMetrics() bridge.Metrics
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Catalog     Catalog
	Analyzer    *gapanalysis.Analyzer
	Reports     gapanalysis.Repository // Optional: analyses are not saved without it
	Bridge      Bridge                 // Optional: catalog refresh falls back to Catalog.Load
	Activity    *activity.Recorder     // Optional: admin actions are not recorded without it
	ExternalHub *Hub                   // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	registry  *device.Registry
	catalog   Catalog
	analyzer  *gapanalysis.Analyzer
	reports   gapanalysis.Repository
	bridge    Bridge
	activity  *activity.Recorder
	mapper    *platform.Mapper
	version   string
	server    *http.Server
	hub       *Hub
	startedAt time.Time
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		registry: deps.Registry,
		catalog:  deps.Catalog,
		analyzer: deps.Analyzer,
		reports:  deps.Reports,
		bridge:   deps.Bridge,
		activity: deps.Activity,
		mapper:   platform.NewMapper(deps.Logger),
		version:  deps.Version,
		hub:      deps.ExternalHub,
	}

	return s, nil
}

// Hub returns the WebSocket hub, creating it if Start has not run yet.
// The bridge broadcasts through it.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// SetBridge attaches the bridge after construction. The bridge needs the
// server's hub, so serve creates the server first. Call before Start.
func (s *Server) SetBridge(b Bridge) {
	s.bridge = b
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.Hub().Run(srvCtx)

	s.startedAt = time.Now()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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

// HealthCheck verifies the API server is running and responsive.
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
