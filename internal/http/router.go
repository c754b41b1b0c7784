package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/hedaiyu-site/Graduation-project/internal/http/handlers"
	httpMW "github.com/hedaiyu-site/Graduation-project/internal/http/middleware"
	"github.com/hedaiyu-site/Graduation-project/internal/observability"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string
	RequestTimeout time.Duration

	QueryHandler  *httpH.QueryHandler
	IngestHandler *httpH.IngestHandler
	CacheHandler  *httpH.CacheHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext(cfg.RequestTimeout))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Queries
		if cfg.QueryHandler != nil {
			api.GET("/entities/central", cfg.QueryHandler.Central)
			api.GET("/entities/:name/related", cfg.QueryHandler.Related)
			api.GET("/entities/:name/documents", cfg.QueryHandler.Documents)
			api.GET("/paths", cfg.QueryHandler.Path)
			api.GET("/stats", cfg.QueryHandler.Stats)
		}

		// Ingest
		if cfg.IngestHandler != nil {
			api.POST("/ingest", cfg.IngestHandler.Ingest)
		}

		// Cache
		if cfg.CacheHandler != nil {
			api.POST("/cache/invalidate", cfg.CacheHandler.Invalidate)
		}
	}

	return r
}
