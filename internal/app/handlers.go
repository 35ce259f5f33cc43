package app

import (
	httpH "github.com/yungbote/racegraph/internal/http/handlers"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

type Handlers struct {
	Race    *httpH.RaceHandler
	Catalog *httpH.CatalogHandler
	Health  *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Race:    httpH.NewRaceHandler(services.Race),
		Catalog: httpH.NewCatalogHandler(services.Race),
		Health:  httpH.NewHealthHandler(services.Health),
	}
}
