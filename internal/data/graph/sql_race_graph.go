package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/racegraph/internal/domain/race"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

// SQLStore keeps the race graph in Postgres or SQLite.
type SQLStore struct {
	db      *gorm.DB
	log     *logger.Logger
	backend string
}

func NewSQLStore(db *gorm.DB, backend string, log *logger.Logger) *SQLStore {
	return &SQLStore{db: db, backend: backend, log: log.With("store", "SQLRaceGraph", "backend", backend)}
}

// DB exposes the underlying handle for tests and administrative tooling.
func (s *SQLStore) DB() *gorm.DB { return s.db }

func (s *SQLStore) Backend() string { return s.backend }

func (s *SQLStore) ExecuteWrite(ctx context.Context, fn func(tx Tx) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql race graph: db not initialized")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sqlTx{db: tx})
	})
}

func (s *SQLStore) ExecuteRead(ctx context.Context, fn func(tx Tx) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql race graph: db not initialized")
	}
	return fn(&sqlTx{db: s.db.WithContext(ctx)})
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(sqlModels()...); err != nil {
		return fmt.Errorf("sql race graph migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&positionRow{}, &raceParticipationRow{}, &runnerRow{}, &raceRow{}, &catalogItemRow{}} {
			res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m)
			if res.Error != nil {
				return res.Error
			}
			s.log.Info("sql rows removed", "model", fmt.Sprintf("%T", m), "count", res.RowsAffected)
		}
		return nil
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlTx struct {
	db *gorm.DB
}

func (t *sqlTx) MergeCatalogItem(ctx context.Context, kind race.CatalogKind, name string) (race.CatalogItem, error) {
	if !kind.Valid() {
		return race.CatalogItem{}, fmt.Errorf("graph: unknown catalog kind %q", kind)
	}
	row := catalogItemRow{
		ID:        uuid.New(),
		Kind:      string(kind),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	// The unique (kind, name) index makes the insert the find-or-create decision: a
	// concurrent writer that got there first turns ours into a no-op.
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&row).Error
	if err != nil {
		return race.CatalogItem{}, err
	}
	var got catalogItemRow
	if err := t.db.WithContext(ctx).
		Where("kind = ? AND name = ?", string(kind), name).
		Take(&got).Error; err != nil {
		return race.CatalogItem{}, err
	}
	return got.toDomain(), nil
}

func (t *sqlTx) CreateRunner(ctx context.Context, r race.Runner) error {
	refs := map[race.CatalogKind]uuid.UUID{
		race.KindCharacter: r.Character.ID,
		race.KindKart:      r.Kart.ID,
		race.KindWheel:     r.Wheel.ID,
		race.KindGlider:    r.Glider.ID,
	}
	for kind, id := range refs {
		ok, err := t.exists(ctx, &catalogItemRow{}, "id = ? AND kind = ?", id, string(kind))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("create runner %s: %s %s: %w", r.ID, kind, id, ErrMissingReference)
		}
	}
	return t.db.WithContext(ctx).Create(&runnerRow{
		ID:             r.ID,
		ExternalUserID: r.ExternalUserID,
		DisplayName:    r.DisplayName,
		CharacterID:    r.Character.ID,
		KartID:         r.Kart.ID,
		WheelID:        r.Wheel.ID,
		GliderID:       r.Glider.ID,
		CreatedAt:      r.CreatedAt.UTC(),
	}).Error
}

func (t *sqlTx) CreateRace(ctx context.Context, r race.Race) error {
	ok, err := t.exists(ctx, &catalogItemRow{}, "id = ? AND kind = ?", r.Track.ID, string(race.KindTrack))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("create race %s: track %s: %w", r.ID, r.Track.ID, ErrMissingReference)
	}
	return t.db.WithContext(ctx).Create(&raceRow{
		ID:        r.ID,
		Mode:      string(r.Mode),
		TrackID:   r.Track.ID,
		CreatedAt: r.CreatedAt.UTC(),
	}).Error
}

func (t *sqlTx) MergePosition(ctx context.Context, p race.Position) (bool, error) {
	ok, err := t.exists(ctx, &raceRow{}, "id = ?", p.RaceID)
	if err != nil {
		return false, err
	}
	if ok {
		ok, err = t.exists(ctx, &runnerRow{}, "id = ?", p.RunnerID)
		if err != nil {
			return false, err
		}
	}
	if !ok {
		return false, fmt.Errorf("merge position %s/%s: %w", p.RaceID, p.RunnerID, ErrMissingReference)
	}

	now := time.Now().UTC()
	res := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "race_id"}, {Name: "runner_id"}},
			DoNothing: true,
		}).
		Create(&positionRow{
			RaceID:      p.RaceID,
			RunnerID:    p.RunnerID,
			Rank:        p.Rank,
			WeightTotal: p.Stats.WeightTotal,
			SpeedTotal:  p.Stats.SpeedTotal,
			AccelTotal:  p.Stats.AccelTotal,
			CreatedAt:   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	created := res.RowsAffected == 1

	err = t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "runner_id"}, {Name: "race_id"}},
			DoNothing: true,
		}).
		Create(&raceParticipationRow{RunnerID: p.RunnerID, RaceID: p.RaceID, CreatedAt: now}).Error
	if err != nil {
		return false, err
	}
	return created, nil
}

func (t *sqlTx) FindCatalogItem(ctx context.Context, kind race.CatalogKind, name string) (*race.CatalogItem, error) {
	var row catalogItemRow
	err := t.db.WithContext(ctx).Where("kind = ? AND name = ?", string(kind), name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item := row.toDomain()
	return &item, nil
}

func (t *sqlTx) GetRunner(ctx context.Context, id uuid.UUID) (*race.Runner, error) {
	runners, err := t.loadRunners(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	r, ok := runners[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *sqlTx) GetRace(ctx context.Context, id uuid.UUID) (*race.RaceResult, error) {
	var row raceRow
	err := t.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	races, err := t.withTracks(ctx, []raceRow{row})
	if err != nil {
		return nil, err
	}

	var positions []positionRow
	if err := t.db.WithContext(ctx).
		Where("race_id = ?", id).
		Order("rank ASC").
		Find(&positions).Error; err != nil {
		return nil, err
	}
	runnerIDs := make([]uuid.UUID, 0, len(positions))
	for _, p := range positions {
		runnerIDs = append(runnerIDs, p.RunnerID)
	}
	runners, err := t.loadRunners(ctx, runnerIDs)
	if err != nil {
		return nil, err
	}

	out := &race.RaceResult{Race: races[0], Standings: make([]race.Standing, 0, len(positions))}
	for _, p := range positions {
		out.Standings = append(out.Standings, race.Standing{
			Position: race.Position{
				RaceID:   p.RaceID,
				RunnerID: p.RunnerID,
				Rank:     p.Rank,
				Stats: race.Stats{
					WeightTotal: p.WeightTotal,
					SpeedTotal:  p.SpeedTotal,
					AccelTotal:  p.AccelTotal,
				},
			},
			Runner: runners[p.RunnerID],
		})
	}
	return out, nil
}

func (t *sqlTx) ListRaces(ctx context.Context, limit int) ([]race.Race, error) {
	var rows []raceRow
	if err := t.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return t.withTracks(ctx, rows)
}

func (t *sqlTx) exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := t.db.WithContext(ctx).Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *sqlTx) catalogByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]race.CatalogItem, error) {
	out := make(map[uuid.UUID]race.CatalogItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []catalogItemRow
	if err := t.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.toDomain()
	}
	return out, nil
}

func (t *sqlTx) withTracks(ctx context.Context, rows []raceRow) ([]race.Race, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.TrackID)
	}
	tracks, err := t.catalogByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]race.Race, 0, len(rows))
	for _, r := range rows {
		out = append(out, race.Race{
			ID:        r.ID,
			Mode:      race.Mode(r.Mode),
			Track:     tracks[r.TrackID],
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (t *sqlTx) loadRunners(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]race.Runner, error) {
	out := make(map[uuid.UUID]race.Runner, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []runnerRow
	if err := t.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	itemIDs := make([]uuid.UUID, 0, len(rows)*4)
	for _, r := range rows {
		itemIDs = append(itemIDs, r.CharacterID, r.KartID, r.WheelID, r.GliderID)
	}
	items, err := t.catalogByID(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = race.Runner{
			ID:             r.ID,
			ExternalUserID: r.ExternalUserID,
			DisplayName:    r.DisplayName,
			Character:      items[r.CharacterID],
			Kart:           items[r.KartID],
			Wheel:          items[r.WheelID],
			Glider:         items[r.GliderID],
			CreatedAt:      r.CreatedAt,
		}
	}
	return out, nil
}
