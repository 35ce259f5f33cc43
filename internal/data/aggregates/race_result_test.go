package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	aggtest "github.com/yungbote/racegraph/internal/data/aggregates/testutil"
	"github.com/yungbote/racegraph/internal/data/graph"
	graphtest "github.com/yungbote/racegraph/internal/data/graph/testutil"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

func scenarioA() race.Report {
	return race.Report{
		Mode:  race.ModeLocal,
		Track: race.NamedRef{Name: "Mario Kart Stadium"},
		Players: []race.PlayerResult{
			{
				ID:        "you",
				Name:      "P1",
				Character: race.NamedRef{Name: "Mario"},
				Kart:      race.NamedRef{Name: "Standard Kart"},
				Wheel:     race.NamedRef{Name: "Standard"},
				Glider:    race.NamedRef{Name: "Super Glider"},
				Position:  1,
				Stats:     race.Stats{WeightTotal: 6, SpeedTotal: 7, AccelTotal: 7},
			},
			{
				ID:        "bot-1",
				Name:      "Bot 1",
				Character: race.NamedRef{Name: "Luigi"},
				Kart:      race.NamedRef{Name: "Pipe Frame"},
				Wheel:     race.NamedRef{Name: "Slick"},
				Glider:    race.NamedRef{Name: "Paraglider"},
				Position:  2,
				Stats:     race.Stats{WeightTotal: 5, SpeedTotal: 5, AccelTotal: 8},
			},
		},
	}
}

func newRaceResultStore(t *testing.T, store graph.Store) (*RaceResultStore, *aggtest.HooksRecorder) {
	t.Helper()
	hooks := &aggtest.HooksRecorder{}
	return NewRaceResultStore(BaseDeps{
		Store: store,
		Log:   graphtest.Logger(t),
		Hooks: hooks,
	}), hooks
}

func getRace(t *testing.T, store graph.Store, id uuid.UUID) *race.RaceResult {
	t.Helper()
	var out *race.RaceResult
	if err := store.ExecuteRead(context.Background(), func(tx graph.Tx) error {
		var err error
		out, err = tx.GetRace(context.Background(), id)
		return err
	}); err != nil {
		t.Fatalf("GetRace: %v", err)
	}
	if out == nil {
		t.Fatalf("race %s not found", id)
	}
	return out
}

func assertEmptyGraph(t *testing.T, store *graph.SQLStore) {
	t.Helper()
	for _, table := range []string{"races", "runners", "positions", "race_participations", "catalog_items"} {
		if n := graphtest.Count(t, store, table, ""); n != 0 {
			t.Fatalf("%s rows: want=0 got=%d", table, n)
		}
	}
}

func TestRecordFinishedRace_ScenarioA(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, hooks := newRaceResultStore(t, store)

	raceID, err := agg.RecordFinishedRace(context.Background(), scenarioA())
	if err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	if raceID == uuid.Nil {
		t.Fatalf("expected race id")
	}

	got := getRace(t, store, raceID)
	if got.Mode != race.ModeLocal || got.Track.Name != "Mario Kart Stadium" {
		t.Fatalf("unexpected race: %+v", got.Race)
	}
	if len(got.Standings) != 2 {
		t.Fatalf("standings: want=2 got=%d", len(got.Standings))
	}
	for i, want := range []struct {
		rank   int
		name   string
		extID  string
		kart   string
		weight int
	}{
		{1, "P1", "you", "Standard Kart", 6},
		{2, "Bot 1", "bot-1", "Pipe Frame", 5},
	} {
		s := got.Standings[i]
		if s.Rank != want.rank || s.Runner.DisplayName != want.name {
			t.Fatalf("standing %d: %+v", i, s)
		}
		if s.Runner.ExternalUserID == nil || *s.Runner.ExternalUserID != want.extID {
			t.Fatalf("standing %d external id: %v", i, s.Runner.ExternalUserID)
		}
		if s.Runner.Kart.Name != want.kart || s.Stats.WeightTotal != want.weight {
			t.Fatalf("standing %d choices/stats: %+v", i, s)
		}
	}
	if got := hooks.Statuses(opRecordFinishedRace); len(got) != 1 || got[0] != "success" {
		t.Fatalf("hook statuses: %+v", got)
	}
}

func TestRecordFinishedRace_ScenarioB_TrackResolvesToSameItem(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, _ := newRaceResultStore(t, store)

	before, err := agg.Catalog().Resolve(context.Background(), race.KindTrack, "Mario Kart Stadium")
	if err != nil {
		t.Fatalf("Resolve before: %v", err)
	}
	raceID, err := agg.RecordFinishedRace(context.Background(), scenarioA())
	if err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	after, err := agg.Catalog().Resolve(context.Background(), race.KindTrack, "Mario Kart Stadium")
	if err != nil {
		t.Fatalf("Resolve after: %v", err)
	}
	if before.ID != after.ID {
		t.Fatalf("track identity changed: %s -> %s", before.ID, after.ID)
	}
	if got := getRace(t, store, raceID); got.Track.ID != before.ID {
		t.Fatalf("race linked to %s, want %s", got.Track.ID, before.ID)
	}
}

func TestRecordFinishedRace_ScenarioC_ResubmissionCreatesNewRace(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, _ := newRaceResultStore(t, store)

	first, err := agg.RecordFinishedRace(context.Background(), scenarioA())
	if err != nil {
		t.Fatalf("first submission: %v", err)
	}
	second, err := agg.RecordFinishedRace(context.Background(), scenarioA())
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct race ids, got %s twice", first)
	}

	a, b := getRace(t, store, first), getRace(t, store, second)
	if a.Track.ID != b.Track.ID {
		t.Fatalf("races should share the track node")
	}
	for i := range a.Standings {
		if a.Standings[i].Runner.ID == b.Standings[i].Runner.ID {
			t.Fatalf("runner %d reused across races", i)
		}
		if a.Standings[i].Runner.Character.ID != b.Standings[i].Runner.Character.ID {
			t.Fatalf("runner %d character should be the same catalog node", i)
		}
	}

	// 1 track + 2 of each equipment kind, regardless of how many times the report lands.
	if n := graphtest.Count(t, store, "catalog_items", ""); n != 9 {
		t.Fatalf("catalog rows: want=9 got=%d", n)
	}
	if n := graphtest.Count(t, store, "runners", ""); n != 4 {
		t.Fatalf("runner rows: want=4 got=%d", n)
	}
	for _, id := range []uuid.UUID{first, second} {
		if n := graphtest.Count(t, store, "positions", "race_id = ?", id); n != 2 {
			t.Fatalf("positions for %s: want=2 got=%d", id, n)
		}
	}
}

func TestRecordFinishedRace_RanksFollowListOrder(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, _ := newRaceResultStore(t, store)

	report := scenarioA()
	report.Players[0].Position = 2
	report.Players[1].Position = 2

	raceID, err := agg.RecordFinishedRace(context.Background(), report)
	if err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	got := getRace(t, store, raceID)
	ranks := map[int]bool{}
	for _, s := range got.Standings {
		ranks[s.Rank] = true
	}
	if len(ranks) != 2 || !ranks[1] || !ranks[2] {
		t.Fatalf("ranks must be {1,2}, got %+v", ranks)
	}
	if got.Standings[0].Runner.DisplayName != "P1" {
		t.Fatalf("first in list must be rank 1, got %+v", got.Standings[0].Runner)
	}
}

func TestRecordFinishedRace_BotWithoutUserID(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, _ := newRaceResultStore(t, store)

	report := scenarioA()
	report.Players[1].ID = "  "
	raceID, err := agg.RecordFinishedRace(context.Background(), report)
	if err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	got := getRace(t, store, raceID)
	if got.Standings[1].Runner.ExternalUserID != nil {
		t.Fatalf("bot runner should have no external id, got %q", *got.Standings[1].Runner.ExternalUserID)
	}
}

func TestRecordFinishedRace_ValidationRejectsBeforeWrite(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *race.Report)
		field  string
	}{
		{"empty players", func(r *race.Report) { r.Players = nil }, "players"},
		{"unknown mode", func(r *race.Report) { r.Mode = "ranked" }, "mode"},
		{"missing mode", func(r *race.Report) { r.Mode = "" }, "mode"},
		{"missing track", func(r *race.Report) { r.Track.Name = "   " }, "track.name"},
		{"missing kart", func(r *race.Report) { r.Players[1].Kart.Name = "" }, "players[1].kart"},
		{"missing glider", func(r *race.Report) { r.Players[0].Glider.Name = "" }, "players[0].glider"},
		{"negative stats", func(r *race.Report) { r.Players[0].Stats.SpeedTotal = -1 }, "players[0].stats.speedTotal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := graphtest.SQLiteStore(t)
			agg, hooks := newRaceResultStore(t, store)

			report := scenarioA()
			tc.mutate(&report)
			_, err := agg.RecordFinishedRace(context.Background(), report)
			if !domainagg.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if got := domainagg.FieldOf(err); got != tc.field {
				t.Fatalf("field: want=%q got=%q", tc.field, got)
			}
			if len(hooks.Operations) != 0 {
				t.Fatalf("no transaction should start, got %+v", hooks.Operations)
			}
			assertEmptyGraph(t, store)
		})
	}
}

func TestRecordFinishedRace_AcceptsModeCasing(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, _ := newRaceResultStore(t, store)

	report := scenarioA()
	report.Mode = " Online "
	raceID, err := agg.RecordFinishedRace(context.Background(), report)
	if err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	if got := getRace(t, store, raceID); got.Mode != race.ModeOnline {
		t.Fatalf("mode: want=online got=%s", got.Mode)
	}
}

func TestRecordFinishedRace_AllOrNothing(t *testing.T) {
	cases := []struct {
		name  string
		store func(inner graph.Store) *graphtest.FailingStore
	}{
		{"second position attach", func(inner graph.Store) *graphtest.FailingStore {
			return &graphtest.FailingStore{Store: inner, FailMergePositionAt: 2}
		}},
		{"first position attach", func(inner graph.Store) *graphtest.FailingStore {
			return &graphtest.FailingStore{Store: inner, FailMergePositionAt: 1}
		}},
		{"second runner", func(inner graph.Store) *graphtest.FailingStore {
			return &graphtest.FailingStore{Store: inner, FailCreateRunnerAt: 2}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inner := graphtest.SQLiteStore(t)
			agg, hooks := newRaceResultStore(t, tc.store(inner))

			raceID, err := agg.RecordFinishedRace(context.Background(), scenarioA())
			if !domainagg.IsPersistence(err) {
				t.Fatalf("expected persistence error, got %v", err)
			}
			if !errors.Is(err, graphtest.ErrInjected) {
				t.Fatalf("expected injected cause, got %v", err)
			}
			if raceID != uuid.Nil {
				t.Fatalf("failed call must not return a race id")
			}
			if got := hooks.Statuses(opRecordFinishedRace); len(got) != 1 || got[0] != string(domainagg.CodePersistence) {
				t.Fatalf("hook statuses: %+v", got)
			}
			assertEmptyGraph(t, inner)
		})
	}
}

func TestRecordFinishedRace_CommitFailureRollsBack(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	runner := &aggtest.InjectedTxRunner{Store: store, FailCommit: errors.New("commit lost")}
	agg := NewRaceResultStore(BaseDeps{Store: store, Log: graphtest.Logger(t), Runner: runner})

	_, err := agg.RecordFinishedRace(context.Background(), scenarioA())
	if !domainagg.IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if runner.RollbackCalls != 1 || runner.CommitCalls != 0 {
		t.Fatalf("unexpected counters commit=%d rollback=%d", runner.CommitCalls, runner.RollbackCalls)
	}
	assertEmptyGraph(t, store)

	// A retry of the whole call after a rolled back attempt lands exactly once.
	runner.FailCommit = nil
	raceID, err := agg.RecordFinishedRace(context.Background(), scenarioA())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := graphtest.Count(t, store, "races", ""); n != 1 {
		t.Fatalf("race rows: want=1 got=%d", n)
	}
	if n := graphtest.Count(t, store, "positions", "race_id = ?", raceID); n != 2 {
		t.Fatalf("position rows: want=2 got=%d", n)
	}
}

func TestRecordFinishedRace_ConcurrentReportsShareCatalog(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	agg, _ := newRaceResultStore(t, store)

	const submissions = 8
	ids := make([]uuid.UUID, submissions)
	errs := make([]error, submissions)
	var wg sync.WaitGroup
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = agg.RecordFinishedRace(context.Background(), scenarioA())
		}(i)
	}
	wg.Wait()

	seen := map[uuid.UUID]bool{}
	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("submission %d: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Fatalf("duplicate race id %s", ids[i])
		}
		seen[ids[i]] = true
	}
	if n := graphtest.Count(t, store, "catalog_items", "kind = ?", string(race.KindTrack)); n != 1 {
		t.Fatalf("track rows: want=1 got=%d", n)
	}
	if n := graphtest.Count(t, store, "catalog_items", ""); n != 9 {
		t.Fatalf("catalog rows: want=9 got=%d", n)
	}
	if n := graphtest.Count(t, store, "runners", ""); n != 2*submissions {
		t.Fatalf("runner rows: want=%d got=%d", 2*submissions, n)
	}
	if n := graphtest.Count(t, store, "positions", ""); n != 2*submissions {
		t.Fatalf("position rows: want=%d got=%d", 2*submissions, n)
	}
}

func TestRecordFinishedRace_ReportedPositionsDoNotReorder(t *testing.T) {
	store := graphtest.SQLiteStore(t)
	core, logs := observer.New(zap.WarnLevel)
	agg := NewRaceResultStore(BaseDeps{
		Store: store,
		Log:   &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
	})

	report := scenarioA()
	report.Players[0].Position = 2
	report.Players[1].Position = 1
	raceID, err := agg.RecordFinishedRace(context.Background(), report)
	if err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	got := getRace(t, store, raceID)
	if got.Standings[0].Runner.DisplayName != "P1" || got.Standings[0].Rank != 1 || got.Standings[1].Rank != 2 {
		t.Fatalf("list order must decide rank: %+v", got.Standings)
	}
	entries := logs.FilterMessageSnippet("reported positions differ").All()
	if len(entries) != 1 {
		t.Fatalf("expected one mismatch warning, got %d", len(entries))
	}

	// Matching or absent positions are silent.
	report = scenarioA()
	report.Players[1].Position = 0
	if _, err := agg.RecordFinishedRace(context.Background(), report); err != nil {
		t.Fatalf("RecordFinishedRace: %v", err)
	}
	if n := logs.FilterMessageSnippet("reported positions differ").Len(); n != 1 {
		t.Fatalf("unexpected extra warnings: %d", n)
	}
}

func TestPositionMismatches(t *testing.T) {
	players := []race.PlayerResult{{Position: 1}, {Position: 0}, {Position: 2}, {Position: 4}}
	got := positionMismatches(players)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("want [2], got %v", got)
	}
}

func TestContracts(t *testing.T) {
	agg := NewRaceResultStore(BaseDeps{})
	if !agg.Contract().RequiresAggregateOwnedTx() {
		t.Fatalf("race result store must own its transaction")
	}
	if agg.Contract().Idempotency != domainagg.IdempotencyPerSubOperation {
		t.Fatalf("unexpected idempotency scope: %s", agg.Contract().Idempotency)
	}
}
