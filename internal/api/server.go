// Package api provides the HTTP surface over the multi-database store:
// per-entity CRUD, telemetry ingestion, and operator authentication.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"southerniot.dev/erp/internal/auth"
	"southerniot.dev/erp/internal/store"
	"southerniot.dev/erp/pkg/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	registry   *store.Registry
	tokens     *auth.TokenManager
	hasher     *auth.Hasher
	devices    *auth.DeviceAuthorizer
	metrics    *metrics.APIMetrics
	httpServer *http.Server
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger   *slog.Logger
	Registry *store.Registry
	Tokens   *auth.TokenManager
	Hasher   *auth.Hasher
	Devices  *auth.DeviceAuthorizer
	Metrics  *metrics.APIMetrics // optional

	// HTTP server configuration
	HTTPPort int
}

// NewServer creates a new Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}

	if cfg.Tokens == nil {
		return nil, errors.New("token manager cannot be nil")
	}

	if cfg.Hasher == nil {
		return nil, errors.New("hasher cannot be nil")
	}

	if cfg.Devices == nil {
		return nil, errors.New("device authorizer cannot be nil")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	return &Server{
		logger:   cfg.Logger,
		config:   cfg,
		registry: cfg.Registry,
		tokens:   cfg.Tokens,
		hasher:   cfg.Hasher,
		devices:  cfg.Devices,
		metrics:  cfg.Metrics,
	}, nil
}

// Handler returns the configured route set. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Run starts the API server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting api server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	mux := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("api server started successfully")

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down api server")

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
	}

	s.logger.Info("api server shutdown completed successfully")
	return nil
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Operational endpoints
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Authentication
	mux.Handle("POST /api/v1/auth/login", s.instrument("/api/v1/auth/login", s.handleLogin))
	mux.Handle("GET /api/v1/auth/me", s.instrument("/api/v1/auth/me", s.requireAuth(s.handleMe)))

	// Clients
	mux.Handle("POST /api/v1/clients", s.instrument("/api/v1/clients", s.requireAuth(s.handleCreateClient)))
	mux.Handle("GET /api/v1/clients", s.instrument("/api/v1/clients", s.requireAuth(s.handleListClients)))
	mux.Handle("GET /api/v1/clients/{ref}", s.instrument("/api/v1/clients/{ref}", s.requireAuth(s.handleGetClient)))
	mux.Handle("PUT /api/v1/clients/{id}", s.instrument("/api/v1/clients/{id}", s.requireAuth(s.handleUpdateClient)))
	mux.Handle("DELETE /api/v1/clients/{id}", s.instrument("/api/v1/clients/{id}", s.requireAuth(s.handleDeleteClient)))

	// Orders
	mux.Handle("POST /api/v1/orders", s.instrument("/api/v1/orders", s.requireAuth(s.handleCreateOrder)))
	mux.Handle("GET /api/v1/orders", s.instrument("/api/v1/orders", s.requireAuth(s.handleListOrders)))
	mux.Handle("GET /api/v1/orders/{ref}", s.instrument("/api/v1/orders/{ref}", s.requireAuth(s.handleGetOrder)))
	mux.Handle("PUT /api/v1/orders/{id}", s.instrument("/api/v1/orders/{id}", s.requireAuth(s.handleUpdateOrder)))
	mux.Handle("DELETE /api/v1/orders/{id}", s.instrument("/api/v1/orders/{id}", s.requireAuth(s.handleDeleteOrder)))

	// End devices + device telemetry
	mux.Handle("POST /api/v1/end-devices", s.instrument("/api/v1/end-devices", s.requireAuth(s.handleCreateEndDevice)))
	mux.Handle("GET /api/v1/end-devices", s.instrument("/api/v1/end-devices", s.requireAuth(s.handleListEndDevices)))
	mux.Handle("GET /api/v1/end-devices/{ref}", s.instrument("/api/v1/end-devices/{ref}", s.requireAuth(s.handleGetEndDevice)))
	mux.Handle("PUT /api/v1/end-devices/{id}", s.instrument("/api/v1/end-devices/{id}", s.requireAuth(s.handleUpdateEndDevice)))
	mux.Handle("DELETE /api/v1/end-devices/{id}", s.instrument("/api/v1/end-devices/{id}", s.requireAuth(s.handleDeleteEndDevice)))
	mux.Handle("POST /api/v1/end-devices/{publicID}/telemetry",
		s.instrument("/api/v1/end-devices/{publicID}/telemetry", s.requireDeviceToken(s.handleCreateDeviceTelemetry)))
	mux.Handle("GET /api/v1/end-devices/{publicID}/telemetry",
		s.instrument("/api/v1/end-devices/{publicID}/telemetry", s.requireAuth(s.handleListDeviceTelemetry)))

	// Gateways + gateway telemetry
	mux.Handle("POST /api/v1/gateways", s.instrument("/api/v1/gateways", s.requireAuth(s.handleCreateGateway)))
	mux.Handle("GET /api/v1/gateways", s.instrument("/api/v1/gateways", s.requireAuth(s.handleListGateways)))
	mux.Handle("GET /api/v1/gateways/{ref}", s.instrument("/api/v1/gateways/{ref}", s.requireAuth(s.handleGetGateway)))
	mux.Handle("PUT /api/v1/gateways/{id}", s.instrument("/api/v1/gateways/{id}", s.requireAuth(s.handleUpdateGateway)))
	mux.Handle("DELETE /api/v1/gateways/{id}", s.instrument("/api/v1/gateways/{id}", s.requireAuth(s.handleDeleteGateway)))
	mux.Handle("POST /api/v1/gateways/{publicID}/telemetry",
		s.instrument("/api/v1/gateways/{publicID}/telemetry", s.requireDeviceToken(s.handleCreateGatewayTelemetry)))
	mux.Handle("GET /api/v1/gateways/{publicID}/telemetry",
		s.instrument("/api/v1/gateways/{publicID}/telemetry", s.requireAuth(s.handleListGatewayTelemetry)))

	// Users
	mux.Handle("POST /api/v1/users", s.instrument("/api/v1/users", s.requireAuth(s.handleCreateUser)))
	mux.Handle("GET /api/v1/users", s.instrument("/api/v1/users", s.requireAuth(s.handleListUsers)))
	mux.Handle("GET /api/v1/users/{id}", s.instrument("/api/v1/users/{id}", s.requireAuth(s.handleGetUser)))
	mux.Handle("PUT /api/v1/users/{id}", s.instrument("/api/v1/users/{id}", s.requireAuth(s.handleUpdateUser)))
	mux.Handle("DELETE /api/v1/users/{id}", s.instrument("/api/v1/users/{id}", s.requireAuth(s.handleDeleteUser)))

	return mux
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
