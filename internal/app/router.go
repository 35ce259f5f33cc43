package app

import (
	httpserver "github.com/yungbote/racegraph/internal/http"
	"github.com/yungbote/racegraph/internal/observability"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

const serviceName = "racegraph"

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *httpserver.Server {
	var traced string
	if cfg.OtelEnabled {
		traced = serviceName
	}
	return httpserver.NewServer(cfg.Addr, httpserver.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    traced,
		AllowedOrigins: cfg.AllowedOrigins(),
		RaceHandler:    handlers.Race,
		CatalogHandler: handlers.Catalog,
		HealthHandler:  handlers.Health,
	})
}
