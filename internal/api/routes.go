package api

import (
	"github.com/gin-gonic/gin"

	"github.com/strategicvalueplus/scout/internal/metrics"
)

// RouterConfig configures SetupRouter.
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
	// ServeMetrics exposes /metrics on the API listener.
	ServeMetrics bool
}

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg RouterConfig, handler *Handler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Recovery runs first so it also covers the other middleware.
	router.Use(RecoveryMiddleware(handler.logger))
	router.Use(LoggerMiddleware(handler.logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if cfg.ServeMetrics {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/thomasnet", handler.Capabilities)
		api.POST("/thomasnet", handler.ThomasNet)
		api.POST("/suppliers/search", handler.SearchSuppliers)
	}

	return router
}
