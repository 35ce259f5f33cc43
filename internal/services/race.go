package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/racegraph/internal/data/aggregates"
	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
	"github.com/yungbote/racegraph/internal/observability"
	"github.com/yungbote/racegraph/internal/platform/ctxutil"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/realtime/bus"
)

const (
	DefaultRaceListLimit = 20
	MaxRaceListLimit     = 100

	publishTimeout = 2 * time.Second
)

var tracer = otel.Tracer("github.com/yungbote/racegraph/internal/services")

type RaceService interface {
	RecordFinishedRace(ctx context.Context, report race.Report) (uuid.UUID, error)
	GetRace(ctx context.Context, id uuid.UUID) (*race.RaceResult, error)
	ListRaces(ctx context.Context, limit int) ([]race.Race, error)
	ResolveCatalogItem(ctx context.Context, kind, name string) (race.CatalogItem, error)
}

type raceService struct {
	log     *logger.Logger
	store   graph.Store
	results domainagg.RaceResultAggregate
	catalog domainagg.CatalogAggregate
	bus     bus.Bus
	metrics *observability.Metrics
}

func NewRaceService(
	log *logger.Logger,
	store graph.Store,
	results domainagg.RaceResultAggregate,
	catalog domainagg.CatalogAggregate,
	eventBus bus.Bus,
	metrics *observability.Metrics,
) RaceService {
	if eventBus == nil {
		eventBus = bus.NewNoopBus()
	}
	return &raceService{
		log:     log.With("service", "RaceService"),
		store:   store,
		results: results,
		catalog: catalog,
		bus:     eventBus,
		metrics: metrics,
	}
}

func (s *raceService) RecordFinishedRace(ctx context.Context, report race.Report) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "RaceService.RecordFinishedRace")
	defer span.End()
	span.SetAttributes(
		attribute.String("race.mode", string(report.Mode)),
		attribute.Int("race.players", len(report.Players)),
	)

	raceID, err := s.results.RecordFinishedRace(ctx, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domainagg.CodeOf(err)))
		return uuid.Nil, err
	}
	span.SetAttributes(attribute.String("race.id", raceID.String()))

	mode := strings.ToLower(strings.TrimSpace(string(report.Mode)))
	s.publishFinished(ctx, bus.RaceEvent{
		Type:       bus.EventRaceFinished,
		RaceID:     raceID.String(),
		Mode:       mode,
		Track:      race.NormalizeName(report.Track.Name),
		Runners:    len(report.Players),
		RecordedAt: time.Now().UTC(),
	})
	return raceID, nil
}

// publishFinished runs after commit. A failed publish is logged and counted only.
func (s *raceService) publishFinished(ctx context.Context, ev bus.RaceEvent) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.bus.Publish(pctx, ev); err != nil {
		s.metrics.IncRaceEvent("failed")
		s.log.Warn("race event publish failed", append([]interface{}{"race_id", ev.RaceID, "error", err}, ctxutil.LogFields(ctx)...)...)
		return
	}
	s.metrics.IncRaceEvent("published")
}

func (s *raceService) GetRace(ctx context.Context, id uuid.UUID) (*race.RaceResult, error) {
	const op = "race.get"
	if id == uuid.Nil {
		return nil, domainagg.NewFieldError(op, "id", "is required")
	}
	var out *race.RaceResult
	err := s.store.ExecuteRead(ctx, func(tx graph.Tx) error {
		var err error
		out, err = tx.GetRace(ctx, id)
		return err
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if out == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "race not found", nil)
	}
	return out, nil
}

func (s *raceService) ListRaces(ctx context.Context, limit int) ([]race.Race, error) {
	switch {
	case limit <= 0:
		limit = DefaultRaceListLimit
	case limit > MaxRaceListLimit:
		limit = MaxRaceListLimit
	}
	var out []race.Race
	err := s.store.ExecuteRead(ctx, func(tx graph.Tx) error {
		var err error
		out, err = tx.ListRaces(ctx, limit)
		return err
	})
	if err != nil {
		return nil, aggregates.MapError("race.list", err)
	}
	if out == nil {
		out = []race.Race{}
	}
	return out, nil
}

func (s *raceService) ResolveCatalogItem(ctx context.Context, kind, name string) (race.CatalogItem, error) {
	k, ok := race.ParseCatalogKind(kind)
	if !ok {
		return race.CatalogItem{}, domainagg.NewFieldError("catalog.resolve", "kind", "must be one of Character, Kart, Wheel, Glider, Track")
	}
	return s.catalog.Resolve(ctx, k, name)
}
