package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
)

const (
	opRaceOpen       = "race.open"
	opAttachPosition = "race.attach_position"
)

// RaceRecorder opens races and attaches position facts to them.
type RaceRecorder struct {
	deps    BaseDeps
	catalog *CatalogResolver
}

func NewRaceRecorder(deps BaseDeps, catalog *CatalogResolver) *RaceRecorder {
	deps = deps.withDefaults()
	if catalog == nil {
		catalog = NewCatalogResolver(deps)
	}
	return &RaceRecorder{deps: deps, catalog: catalog}
}

func (a *RaceRecorder) OpenRace(ctx context.Context, mode race.Mode, trackName string) (uuid.UUID, error) {
	if err := validateOpenRace(opRaceOpen, mode, trackName); err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err := executeWrite(ctx, a.deps, opRaceOpen, func(tx graph.Tx) error {
		var err error
		id, err = a.OpenRaceInTx(ctx, tx, mode, trackName)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// OpenRaceInTx resolves the track and creates the race with its track edge.
func (a *RaceRecorder) OpenRaceInTx(ctx context.Context, tx graph.Tx, mode race.Mode, trackName string) (uuid.UUID, error) {
	if err := validateOpenRace(opRaceOpen, mode, trackName); err != nil {
		return uuid.Nil, err
	}
	track, err := a.catalog.ResolveInTx(ctx, tx, race.KindTrack, trackName)
	if err != nil {
		return uuid.Nil, err
	}
	r := race.Race{
		ID:        uuid.New(),
		Mode:      mode,
		Track:     track,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.CreateRace(ctx, r); err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}

// AttachPosition is idempotent on (raceID, runnerID). The first write wins; later calls
// report created=false and leave the stored fact untouched.
func (a *RaceRecorder) AttachPosition(ctx context.Context, raceID, runnerID uuid.UUID, rank int, stats race.Stats) (bool, error) {
	if err := validatePosition(opAttachPosition, raceID, runnerID, rank, stats); err != nil {
		return false, err
	}
	var created bool
	err := executeWrite(ctx, a.deps, opAttachPosition, func(tx graph.Tx) error {
		var err error
		created, err = a.AttachPositionInTx(ctx, tx, raceID, runnerID, rank, stats)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (a *RaceRecorder) AttachPositionInTx(ctx context.Context, tx graph.Tx, raceID, runnerID uuid.UUID, rank int, stats race.Stats) (bool, error) {
	if err := validatePosition(opAttachPosition, raceID, runnerID, rank, stats); err != nil {
		return false, err
	}
	return tx.MergePosition(ctx, race.Position{
		RaceID:   raceID,
		RunnerID: runnerID,
		Rank:     rank,
		Stats:    stats,
	})
}

func validateOpenRace(op string, mode race.Mode, trackName string) error {
	if !mode.Valid() {
		return domainagg.NewFieldError(op, "mode", "must be local or online")
	}
	if race.NormalizeName(trackName) == "" {
		return domainagg.NewFieldError(op, "track.name", "is required")
	}
	return nil
}

func validatePosition(op string, raceID, runnerID uuid.UUID, rank int, stats race.Stats) error {
	switch {
	case raceID == uuid.Nil:
		return domainagg.NewFieldError(op, "race_id", "is required")
	case runnerID == uuid.Nil:
		return domainagg.NewFieldError(op, "runner_id", "is required")
	case rank < 1:
		return domainagg.NewFieldError(op, "rank", "must be a positive integer")
	case stats.WeightTotal < 0:
		return domainagg.NewFieldError(op, "stats.weightTotal", "must not be negative")
	case stats.SpeedTotal < 0:
		return domainagg.NewFieldError(op, "stats.speedTotal", "must not be negative")
	case stats.AccelTotal < 0:
		return domainagg.NewFieldError(op, "stats.accelTotal", "must not be negative")
	}
	return nil
}
