package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
)

const opRecordFinishedRace = "race.record_finished"

// RaceResultStore commits a finished-race report as one subgraph: race, track edge, one
// runner per player and one position per runner.
type RaceResultStore struct {
	deps     BaseDeps
	catalog  *CatalogResolver
	runners  *RunnerRegistry
	recorder *RaceRecorder
}

var _ domainagg.RaceResultAggregate = (*RaceResultStore)(nil)

func NewRaceResultStore(deps BaseDeps) *RaceResultStore {
	deps = deps.withDefaults()
	catalog := NewCatalogResolver(deps)
	return &RaceResultStore{
		deps:     deps,
		catalog:  catalog,
		runners:  NewRunnerRegistry(deps, catalog),
		recorder: NewRaceRecorder(deps, catalog),
	}
}

func (a *RaceResultStore) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:             "race_result",
		WriteTxOwnership: domainagg.WriteTxOwnedByAggregate,
		Idempotency:      domainagg.IdempotencyPerSubOperation,
		Notes:            "one transaction per report; resubmission creates a new race",
	}
}

// Catalog exposes the resolver sharing this store's deps.
func (a *RaceResultStore) Catalog() *CatalogResolver { return a.catalog }

// RecordFinishedRace validates the report, then writes the whole race in one transaction.
// Ranks come from list order, so they are always exactly 1..N. Reported position values
// that disagree with the list are logged and otherwise ignored.
func (a *RaceResultStore) RecordFinishedRace(ctx context.Context, report race.Report) (uuid.UUID, error) {
	report, err := normalizeReport(report)
	if err != nil {
		return uuid.Nil, err
	}
	if idx := positionMismatches(report.Players); len(idx) > 0 {
		a.deps.Log.Warn("reported positions differ from list order; ranking by list order",
			"track", report.Track.Name,
			"players", idx,
		)
	}

	var raceID uuid.UUID
	err = executeWrite(ctx, a.deps, opRecordFinishedRace, func(tx graph.Tx) error {
		id, err := a.recorder.OpenRaceInTx(ctx, tx, report.Mode, report.Track.Name)
		if err != nil {
			return err
		}
		for i, p := range report.Players {
			runnerID, err := a.runners.RegisterInTx(ctx, tx, RegisterRunnerInput{
				ExternalUserID: p.ExternalUserID(),
				DisplayName:    p.Name,
				Choices:        p.Choices(),
			})
			if err != nil {
				return err
			}
			created, err := a.recorder.AttachPositionInTx(ctx, tx, id, runnerID, i+1, p.Stats)
			if err != nil {
				return err
			}
			if !created {
				return ConflictError(fmt.Sprintf("position for runner %s already attached to race %s", runnerID, id))
			}
		}
		raceID = id
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	a.deps.Hooks.RaceRecorded(report.Mode, len(report.Players))
	a.deps.Log.Info("race recorded",
		"race_id", raceID,
		"mode", report.Mode,
		"track", report.Track.Name,
		"runners", len(report.Players),
	)
	return raceID, nil
}

// normalizeReport trims names, lowercases the mode and rejects incomplete reports with the
// offending field named.
func normalizeReport(report race.Report) (race.Report, error) {
	report.Mode = race.Mode(strings.ToLower(strings.TrimSpace(string(report.Mode))))
	if report.Mode == "" {
		return report, domainagg.NewFieldError(opRecordFinishedRace, "mode", "is required")
	}
	if !report.Mode.Valid() {
		return report, domainagg.NewFieldError(opRecordFinishedRace, "mode", "must be local or online")
	}
	report.Track.Name = race.NormalizeName(report.Track.Name)
	if report.Track.Name == "" {
		return report, domainagg.NewFieldError(opRecordFinishedRace, "track.name", "is required")
	}
	if len(report.Players) == 0 {
		return report, domainagg.NewFieldError(opRecordFinishedRace, "players", "must not be empty")
	}
	players := make([]race.PlayerResult, len(report.Players))
	for i, p := range report.Players {
		prefix := fmt.Sprintf("players[%d]", i)
		p.Name = strings.TrimSpace(p.Name)
		p.Character.Name = race.NormalizeName(p.Character.Name)
		p.Kart.Name = race.NormalizeName(p.Kart.Name)
		p.Wheel.Name = race.NormalizeName(p.Wheel.Name)
		p.Glider.Name = race.NormalizeName(p.Glider.Name)
		if err := validateChoices(opRecordFinishedRace, prefix, p.Choices()); err != nil {
			return report, err
		}
		if err := validateStats(prefix, p.Stats); err != nil {
			return report, err
		}
		players[i] = p
	}
	report.Players = players
	return report, nil
}

func validateStats(prefix string, s race.Stats) error {
	switch {
	case s.WeightTotal < 0:
		return domainagg.NewFieldError(opRecordFinishedRace, prefix+".stats.weightTotal", "must not be negative")
	case s.SpeedTotal < 0:
		return domainagg.NewFieldError(opRecordFinishedRace, prefix+".stats.speedTotal", "must not be negative")
	case s.AccelTotal < 0:
		return domainagg.NewFieldError(opRecordFinishedRace, prefix+".stats.accelTotal", "must not be negative")
	}
	return nil
}

// positionMismatches returns the indexes of players whose reported position is set and is
// not their place in the list.
func positionMismatches(players []race.PlayerResult) []int {
	var out []int
	for i, p := range players {
		if p.Position != 0 && p.Position != i+1 {
			out = append(out, i)
		}
	}
	return out
}
