package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ontoroute/ontoroute/internal/http/handlers"
	"github.com/ontoroute/ontoroute/internal/platform/envutil"
)

type RouterConfig struct {
	HealthHandler  *handlers.HealthHandler
	ResolveHandler *handlers.ResolveHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if envutil.Bool("OTEL_ENABLED", false) {
		router.Use(otelgin.Middleware("ontoroute"))
	}

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/resolve", cfg.ResolveHandler.Resolve)
	}

	return router
}
