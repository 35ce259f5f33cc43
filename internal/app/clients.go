package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/racegraph/internal/data/db"
	"github.com/yungbote/racegraph/internal/data/graph"
	"github.com/yungbote/racegraph/internal/observability"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/platform/neo4jdb"
	"github.com/yungbote/racegraph/internal/realtime/bus"
)

type Clients struct {
	Store graph.Store
	Redis *goredis.Client
	Bus   bus.Bus
}

// OpenStore connects the configured graph backend and, when schema_init is set, applies
// its uniqueness constraints. A non-nil metrics registers SQL pool stats.
func OpenStore(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (graph.Store, error) {
	var store graph.Store
	switch cfg.StoreBackend {
	case graph.BackendNeo4j:
		client, err := neo4jdb.New(log, neo4jdb.Options{
			URI:         cfg.Neo4jURI,
			User:        cfg.Neo4jUser,
			Password:    cfg.Neo4jPassword,
			Database:    cfg.Neo4jDatabase,
			Timeout:     cfg.Neo4jTimeout(),
			MaxPoolSize: cfg.Neo4jMaxPoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("init neo4j: %w", err)
		}
		store = graph.NewNeo4jStore(client, log)
	case graph.BackendPostgres:
		gdb, err := db.OpenPostgres(cfg.PostgresDSN, db.PoolOptions{MaxOpenConns: 20, MaxIdleConns: 5}, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			metrics.RegisterDBStats(sqlDB, graph.BackendPostgres)
		}
		store = graph.NewSQLStore(gdb, graph.BackendPostgres, log)
	case graph.BackendSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			metrics.RegisterDBStats(sqlDB, graph.BackendSQLite)
		}
		store = graph.NewSQLStore(gdb, graph.BackendSQLite, log)
	default:
		return nil, fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, cfg.StoreBackend)
	}

	if cfg.SchemaInit {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("ensure %s schema: %w", store.Backend(), err)
		}
	}
	log.Info("graph store ready", "backend", store.Backend(), "schema_init", cfg.SchemaInit)
	return store, nil
}

// OpenBus returns a redis-backed bus when redis_addr is set, otherwise a no-op bus and a
// nil client.
func OpenBus(log *logger.Logger, cfg Config) (*goredis.Client, bus.Bus, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, bus.NewNoopBus(), nil
	}
	rdb := bus.NewRedisClient(cfg.RedisAddr)
	b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("init redis bus: %w", err)
	}
	return rdb, b, nil
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := OpenStore(ctx, log, cfg, metrics)
	if err != nil {
		return Clients{}, err
	}

	rdb, eventBus, err := OpenBus(log, cfg)
	if err != nil {
		_ = store.Close(ctx)
		return Clients{}, err
	}

	return Clients{
		Store: store,
		Redis: rdb,
		Bus:   eventBus,
	}, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close(ctx)
	}
}
