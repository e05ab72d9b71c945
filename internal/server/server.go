package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"aihttpanalyzer/internal/client"
	"aihttpanalyzer/internal/config"
	"aihttpanalyzer/internal/core"
	"aihttpanalyzer/internal/dispatch"
	"aihttpanalyzer/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Server application server
type Server struct {
	port    string
	ginMode string

	router   *gin.Engine
	endpoint *config.EndpointConfig
	client   *client.Client
	logger   core.Logger

	metricsService *metrics.MetricsService

	validClientKeys map[string]bool

	config config.ServerConfig

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	closeOnce      sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil && cfg.Endpoint == nil {
		return nil, fmt.Errorf("storage or endpoint is required in ServerConfig")
	}

	endpoint := cfg.Endpoint
	if endpoint == nil {
		endpoint = config.NewEndpointConfig(cfg.Storage)
	}

	metricsService, ok := cfg.Metrics.(*metrics.MetricsService)
	if !ok || metricsService == nil {
		metricsService = metrics.NewMetricsService()
	}

	modelClient := client.NewClient(client.Config{
		Endpoint:   endpoint,
		HTTPClient: client.NewHTTPClient(cfg.HTTPClientSettings),
		Logger:     cfg.Logger,
		Metrics:    metricsService,
	})

	validClientKeys := make(map[string]bool)
	for _, key := range cfg.ClientAPIKeys {
		validClientKeys[key] = true
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = core.DefaultRateLimit
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:            cfg.Port,
		ginMode:         cfg.GinMode,
		endpoint:        endpoint,
		client:          modelClient,
		logger:          cfg.Logger,
		metricsService:  metricsService,
		validClientKeys: validClientKeys,
		config:          cfg,
		rateLimiter:     newRateLimiter(rateLimit),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	server.setupRoutes()

	return server, nil
}

// provider picks the AI provider for one request from the saved settings
func (s *Server) provider() core.AIProvider {
	return dispatch.NewProvider(dispatch.Config{
		Endpoint:   s.endpoint,
		Client:     s.client,
		SystemText: core.SystemMessage,
		Logger:     s.logger,
		Metrics:    s.metricsService,
	})
}

// Run runs the server
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout(),
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.logger.Info("Server starting on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// writeTimeout leaves room for a chat attempt plus its generate fallback
func (s *Server) writeTimeout() time.Duration {
	timeout := s.config.HTTPClientSettings.RequestTimeout
	if timeout <= 0 {
		timeout = core.HTTPRequestTimeout
	}
	return 2*timeout + 30*time.Second
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			s.logger.Info("Shutdown signal received, shutting down gracefully...")
			s.shutdownCancel()
		case <-s.shutdownCtx.Done():
		}
		signal.Stop(quit)
	}()
}

// Handler exposes the router, mainly for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close closes the server. The preference store belongs to the caller.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.shutdownCancel != nil {
			s.shutdownCancel()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
	})
	return nil
}
