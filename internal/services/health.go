package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/racegraph/internal/data/graph"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

const healthCheckTimeout = 2 * time.Second

// HealthStatus reports each backend. Redis is false when it is not configured.
type HealthStatus struct {
	Graph bool `json:"graph"`
	Redis bool `json:"redis"`

	redisConfigured bool
}

// Healthy ignores redis when it is not configured; publishing race events is optional.
func (h HealthStatus) Healthy() bool {
	if !h.Graph {
		return false
	}
	return h.Redis || !h.redisConfigured
}

type HealthService interface {
	Check(ctx context.Context) HealthStatus
}

type healthService struct {
	log       *logger.Logger
	store     graph.Store
	redisPing func(ctx context.Context) error
}

// NewHealthService checks the store and, when redisPing is non-nil, redis.
func NewHealthService(log *logger.Logger, store graph.Store, redisPing func(ctx context.Context) error) HealthService {
	return &healthService{
		log:       log.With("service", "HealthService"),
		store:     store,
		redisPing: redisPing,
	}
}

func (s *healthService) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := HealthStatus{redisConfigured: s.redisPing != nil}
	var g errgroup.Group
	g.Go(func() error {
		if s.store == nil {
			return nil
		}
		if err := s.store.Ping(ctx); err != nil {
			s.log.Warn("graph store ping failed", "backend", s.store.Backend(), "error", err)
			return nil
		}
		status.Graph = true
		return nil
	})
	if s.redisPing != nil {
		g.Go(func() error {
			if err := s.redisPing(ctx); err != nil {
				s.log.Warn("redis ping failed", "error", err)
				return nil
			}
			status.Redis = true
			return nil
		})
	}
	_ = g.Wait()
	return status
}
