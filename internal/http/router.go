package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/racegraph/internal/http/handlers"
	httpMW "github.com/yungbote/racegraph/internal/http/middleware"
	"github.com/yungbote/racegraph/internal/observability"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// ServiceName enables otelgin spans when non-empty.
	ServiceName    string
	AllowedOrigins []string

	RaceHandler    *httpH.RaceHandler
	CatalogHandler *httpH.CatalogHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Metrics
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Races (legacy reporting clients)
	if cfg.RaceHandler != nil {
		r.POST("/race/finish", cfg.RaceHandler.FinishRace)
	}

	api := r.Group("/api")
	{
		// Races
		if cfg.RaceHandler != nil {
			api.POST("/races", cfg.RaceHandler.FinishRace)
			api.GET("/races", cfg.RaceHandler.ListRaces)
			api.GET("/races/:id", cfg.RaceHandler.GetRace)
		}

		// Catalog
		if cfg.CatalogHandler != nil {
			api.POST("/catalog/resolve", cfg.CatalogHandler.Resolve)
		}
	}

	return r
}
