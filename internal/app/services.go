package app

import (
	"context"

	"github.com/yungbote/racegraph/internal/data/aggregates"
	"github.com/yungbote/racegraph/internal/observability"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/services"
)

type Services struct {
	Race   services.RaceService
	Health services.HealthService
}

func wireServices(log *logger.Logger, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	results := aggregates.NewRaceResultStore(aggregates.BaseDeps{
		Store: clients.Store,
		Log:   log.With("component", "RaceResultStore"),
		Hooks: aggregates.NewObservabilityHooks(metrics),
	})

	var redisPing func(ctx context.Context) error
	if clients.Redis != nil {
		rdb := clients.Redis
		redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	return Services{
		Race:   services.NewRaceService(log, clients.Store, results, results.Catalog(), clients.Bus, metrics),
		Health: services.NewHealthService(log, clients.Store, redisPing),
	}
}
