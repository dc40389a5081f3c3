package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Gladiston-Porto/Trading-APP-sub001/service"
)

// RouterOption configures SetupRouter
type RouterOption func(*routerConfig)

type routerConfig struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithRequestLogger enables structured access logs
func WithRequestLogger(logger *slog.Logger) RouterOption {
	return func(c *routerConfig) { c.logger = logger }
}

// WithMetrics records request metrics and serves them on /metrics
func WithMetrics(m *Metrics) RouterOption {
	return func(c *routerConfig) { c.metrics = m }
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, opts ...RouterOption) *gin.Engine {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.logger != nil {
		router.Use(RequestLogger(cfg.logger))
	}
	if cfg.metrics != nil {
		router.Use(cfg.metrics.Middleware())
		router.GET("/metrics", gin.WrapH(cfg.metrics.Handler()))
	}

	// Create handlers
	handlers := NewAuthHandlers(authService)

	router.GET("/healthz", handlers.Health)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
	}

	// Protected routes
	protected := router.Group("/auth")
	protected.Use(AuthMiddleware(authService))
	{
		protected.POST("/logout", handlers.Logout)
		protected.GET("/me", handlers.Me)
	}

	return router
}
