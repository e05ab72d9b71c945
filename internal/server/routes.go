package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())
	s.router.Use(s.rateLimitMiddleware())

	// Public routes (no auth)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", s.metricsService.PrometheusHandler())
	s.router.GET("/api/stats", s.metricsService.ShowStats)

	// API routes (auth required when client keys are configured)
	api := s.router.Group("/api")
	api.Use(s.authenticateClient)
	{
		api.POST("/analyze", s.analyze)
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)
		api.POST("/settings/test", s.testConnection)
		api.GET("/settings/models", s.listModels)
	}
}
