package http

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/asrs-service/pkg/logging"
	"github.com/wms-platform/asrs-service/pkg/metrics"
	"github.com/wms-platform/asrs-service/pkg/middleware"
)

// RouterConfig holds what the router needs besides the handlers
type RouterConfig struct {
	ServiceName   string
	Logger        *logging.Logger
	Metrics       *metrics.Metrics
	EnableTracing bool
	// Ready reports whether backing stores are reachable
	Ready func() error
}

// NewRouter builds the gin engine with the standard middleware stack,
// the health endpoints, and the versioned API.
func NewRouter(cfg RouterConfig, handlers *Handlers) *gin.Engine {
	router := gin.New()

	mwConfig := middleware.DefaultConfig(cfg.ServiceName, cfg.Logger.Logger)
	mwConfig.EnableTracing = cfg.EnableTracing
	middleware.Setup(router, mwConfig)

	if cfg.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(cfg.Metrics))
		router.GET("/metrics", middleware.MetricsEndpoint(cfg.Metrics))
	}

	ready := cfg.Ready
	if ready == nil {
		ready = func() error { return nil }
	}
	router.GET("/health", middleware.HealthCheck(cfg.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(cfg.ServiceName, ready))

	handlers.RegisterRoutes(router.Group("/api/v1"))
	return router
}
