package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/racegraph/internal/domain/race"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/platform/neo4jdb"
)

type Neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jStore(client *neo4jdb.Client, log *logger.Logger) *Neo4jStore {
	return &Neo4jStore{client: client, log: log.With("store", "Neo4jRaceGraph")}
}

func (s *Neo4jStore) Backend() string { return BackendNeo4j }

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) (neo4j.SessionWithContext, error) {
	if s == nil || s.client == nil || s.client.Driver == nil {
		return nil, fmt.Errorf("neo4j race graph: client not initialized")
	}
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.client.Database,
	}), nil
}

func (s *Neo4jStore) ExecuteWrite(ctx context.Context, fn func(tx Tx) error) error {
	session, err := s.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return err
}

func (s *Neo4jStore) ExecuteRead(ctx context.Context, fn func(tx Tx) error) error {
	session, err := s.session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	_, err = session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{tx: tx})
	})
	return err
}

func schemaStatements() []string {
	stmts := []string{
		`CREATE CONSTRAINT runner_id_unique IF NOT EXISTS FOR (n:Runner) REQUIRE n.runner_id IS UNIQUE`,
		`CREATE CONSTRAINT race_id_unique IF NOT EXISTS FOR (n:Race) REQUIRE n.race_id IS UNIQUE`,
		`CREATE CONSTRAINT position_key_unique IF NOT EXISTS FOR (n:Position) REQUIRE (n.race_id, n.runner_id) IS UNIQUE`,
	}
	for _, kind := range race.CatalogKinds {
		lower := strings.ToLower(string(kind))
		stmts = append(stmts,
			fmt.Sprintf(`CREATE CONSTRAINT %s_name_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.name IS UNIQUE`, lower, kind),
			fmt.Sprintf(`CREATE INDEX %s_id IF NOT EXISTS FOR (n:%s) ON (n.id)`, lower, kind),
		)
	}
	return stmts
}

// EnsureSchema installs the uniqueness constraints MERGE relies on for concurrent writers.
// Individual failures are logged and skipped so an older server still accepts writes.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session, err := s.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	for _, q := range schemaStatements() {
		res, err := session.Run(ctx, q, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "statement", q, "error", err)
		}
	}
	return nil
}

func (s *Neo4jStore) Reset(ctx context.Context) error {
	session, err := s.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	labels := []string{"Position", "Runner", "Race"}
	for _, k := range race.CatalogKinds {
		labels = append(labels, string(k))
	}
	for _, label := range labels {
		res, err := session.Run(ctx, fmt.Sprintf(`MATCH (n:%s) DETACH DELETE n`, label), nil)
		if err != nil {
			return fmt.Errorf("reset %s: %w", label, err)
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return fmt.Errorf("reset %s: %w", label, err)
		}
		s.log.Info("neo4j nodes removed", "label", label, "count", summary.Counters().NodesDeleted())
	}
	return nil
}

func (s *Neo4jStore) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *Neo4jStore) Close(ctx context.Context) error { return s.client.Close(ctx) }

type neo4jTx struct {
	tx neo4j.ManagedTransaction
}

// catalogLabel maps a kind to its node label. Labels cannot be query parameters, so only
// the fixed kinds are ever interpolated.
func catalogLabel(kind race.CatalogKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("graph: unknown catalog kind %q", kind)
	}
	return string(kind), nil
}

// storedTimeLayout is fixed width so ORDER BY on the stored strings is chronological.
// RFC3339Nano drops trailing zeros and would sort 00.5Z after 00.5001Z.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(storedTimeLayout) }

func nowString() string { return formatTime(time.Now()) }

func (t *neo4jTx) MergeCatalogItem(ctx context.Context, kind race.CatalogKind, name string) (race.CatalogItem, error) {
	label, err := catalogLabel(kind)
	if err != nil {
		return race.CatalogItem{}, err
	}
	// Nodes written before ids existed get one on first match.
	q := fmt.Sprintf(`
MERGE (n:%s {name: $name})
ON CREATE SET n.id = $id, n.created_at = $ts
ON MATCH SET n.id = coalesce(n.id, $id), n.created_at = coalesce(n.created_at, $ts)
RETURN n.id AS id, n.name AS name, n.created_at AS created_at
`, label)
	res, err := t.tx.Run(ctx, q, map[string]any{
		"name": name,
		"id":   uuid.New().String(),
		"ts":   nowString(),
	})
	if err != nil {
		return race.CatalogItem{}, err
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return race.CatalogItem{}, err
	}
	return catalogFromRecord(rec, kind, "")
}

func (t *neo4jTx) CreateRunner(ctx context.Context, r race.Runner) error {
	var userID any
	if r.ExternalUserID != nil {
		userID = *r.ExternalUserID
	}
	res, err := t.tx.Run(ctx, `
MATCH (c:Character {id: $character_id})
MATCH (k:Kart {id: $kart_id})
MATCH (w:Wheel {id: $wheel_id})
MATCH (g:Glider {id: $glider_id})
CREATE (u:Runner {runner_id: $runner_id, display_name: $display_name, created_at: $created_at})
SET u.user_id = $user_id
CREATE (u)-[:CHOSE_CHARACTER]->(c)
CREATE (u)-[:CHOSE_KART]->(k)
CREATE (u)-[:CHOSE_WHEEL]->(w)
CREATE (u)-[:CHOSE_GLIDER]->(g)
RETURN u.runner_id AS runner_id
`, map[string]any{
		"runner_id":    r.ID.String(),
		"user_id":      userID,
		"display_name": r.DisplayName,
		"created_at":   formatTime(r.CreatedAt),
		"character_id": r.Character.ID.String(),
		"kart_id":      r.Kart.ID.String(),
		"wheel_id":     r.Wheel.ID.String(),
		"glider_id":    r.Glider.ID.String(),
	})
	if err != nil {
		return err
	}
	recs, err := res.Collect(ctx)
	if err != nil {
		return err
	}
	if len(recs) != 1 {
		return fmt.Errorf("create runner %s: %w", r.ID, ErrMissingReference)
	}
	return nil
}

func (t *neo4jTx) CreateRace(ctx context.Context, r race.Race) error {
	res, err := t.tx.Run(ctx, `
MATCH (t:Track {id: $track_id})
CREATE (r:Race {race_id: $race_id, mode: $mode, created_at: $created_at})
CREATE (r)-[:ON_TRACK]->(t)
RETURN r.race_id AS race_id
`, map[string]any{
		"race_id":    r.ID.String(),
		"mode":       string(r.Mode),
		"created_at": formatTime(r.CreatedAt),
		"track_id":   r.Track.ID.String(),
	})
	if err != nil {
		return err
	}
	recs, err := res.Collect(ctx)
	if err != nil {
		return err
	}
	if len(recs) != 1 {
		return fmt.Errorf("create race %s: %w", r.ID, ErrMissingReference)
	}
	return nil
}

func (t *neo4jTx) MergePosition(ctx context.Context, p race.Position) (bool, error) {
	ts := nowString()
	res, err := t.tx.Run(ctx, `
MATCH (u:Runner {runner_id: $runner_id})
MATCH (r:Race {race_id: $race_id})
MERGE (pos:Position {race_id: $race_id, runner_id: $runner_id})
ON CREATE SET pos.rank = $rank,
              pos.weight_total = $weight_total,
              pos.speed_total = $speed_total,
              pos.accel_total = $accel_total,
              pos.created_at = $ts
MERGE (pos)-[:OF_RUNNER]->(u)
MERGE (pos)-[:IN_RACE]->(r)
MERGE (u)-[:PARTICIPATED_IN]->(r)
RETURN pos.created_at = $ts AS created
`, map[string]any{
		"race_id":      p.RaceID.String(),
		"runner_id":    p.RunnerID.String(),
		"rank":         int64(p.Rank),
		"weight_total": int64(p.Stats.WeightTotal),
		"speed_total":  int64(p.Stats.SpeedTotal),
		"accel_total":  int64(p.Stats.AccelTotal),
		"ts":           ts,
	})
	if err != nil {
		return false, err
	}
	recs, err := res.Collect(ctx)
	if err != nil {
		return false, err
	}
	if len(recs) != 1 {
		return false, fmt.Errorf("merge position %s/%s: %w", p.RaceID, p.RunnerID, ErrMissingReference)
	}
	created, _ := recs[0].Get("created")
	b, _ := created.(bool)
	return b, nil
}

func (t *neo4jTx) FindCatalogItem(ctx context.Context, kind race.CatalogKind, name string) (*race.CatalogItem, error) {
	label, err := catalogLabel(kind)
	if err != nil {
		return nil, err
	}
	res, err := t.tx.Run(ctx, fmt.Sprintf(`
MATCH (n:%s {name: $name})
RETURN n.id AS id, n.name AS name, n.created_at AS created_at
LIMIT 1
`, label), map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	recs, err := res.Collect(ctx)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	item, err := catalogFromRecord(recs[0], kind, "")
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const runnerProjection = `
MATCH (u)-[:CHOSE_CHARACTER]->(c:Character)
MATCH (u)-[:CHOSE_KART]->(k:Kart)
MATCH (u)-[:CHOSE_WHEEL]->(w:Wheel)
MATCH (u)-[:CHOSE_GLIDER]->(g:Glider)
`

const runnerReturn = `u.runner_id AS runner_id, u.user_id AS user_id, u.display_name AS display_name,
       u.created_at AS runner_created_at,
       c.id AS character_id, c.name AS character_name,
       k.id AS kart_id, k.name AS kart_name,
       w.id AS wheel_id, w.name AS wheel_name,
       g.id AS glider_id, g.name AS glider_name`

func (t *neo4jTx) GetRunner(ctx context.Context, id uuid.UUID) (*race.Runner, error) {
	res, err := t.tx.Run(ctx, `MATCH (u:Runner {runner_id: $runner_id})`+runnerProjection+`RETURN `+runnerReturn,
		map[string]any{"runner_id": id.String()})
	if err != nil {
		return nil, err
	}
	recs, err := res.Collect(ctx)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	runner, err := runnerFromRecord(recs[0])
	if err != nil {
		return nil, err
	}
	return &runner, nil
}

func (t *neo4jTx) GetRace(ctx context.Context, id uuid.UUID) (*race.RaceResult, error) {
	res, err := t.tx.Run(ctx, `
MATCH (r:Race {race_id: $race_id})
OPTIONAL MATCH (r)-[:ON_TRACK]->(t:Track)
RETURN r.race_id AS race_id, r.mode AS mode, r.created_at AS created_at,
       t.id AS track_id, t.name AS track_name, t.created_at AS track_created_at
`, map[string]any{"race_id": id.String()})
	if err != nil {
		return nil, err
	}
	recs, err := res.Collect(ctx)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	rc, err := raceFromRecord(recs[0])
	if err != nil {
		return nil, err
	}

	res, err = t.tx.Run(ctx, `
MATCH (pos:Position {race_id: $race_id})-[:OF_RUNNER]->(u:Runner)`+runnerProjection+`
RETURN pos.rank AS rank, pos.weight_total AS weight_total, pos.speed_total AS speed_total,
       pos.accel_total AS accel_total, `+runnerReturn+`
ORDER BY pos.rank ASC
`, map[string]any{"race_id": id.String()})
	if err != nil {
		return nil, err
	}
	recs, err = res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := &race.RaceResult{Race: rc, Standings: make([]race.Standing, 0, len(recs))}
	for _, rec := range recs {
		runner, err := runnerFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out.Standings = append(out.Standings, race.Standing{
			Position: race.Position{
				RaceID:   rc.ID,
				RunnerID: runner.ID,
				Rank:     recInt(rec, "rank"),
				Stats: race.Stats{
					WeightTotal: recInt(rec, "weight_total"),
					SpeedTotal:  recInt(rec, "speed_total"),
					AccelTotal:  recInt(rec, "accel_total"),
				},
			},
			Runner: runner,
		})
	}
	return out, nil
}

func (t *neo4jTx) ListRaces(ctx context.Context, limit int) ([]race.Race, error) {
	res, err := t.tx.Run(ctx, `
MATCH (r:Race)
OPTIONAL MATCH (r)-[:ON_TRACK]->(t:Track)
RETURN r.race_id AS race_id, r.mode AS mode, r.created_at AS created_at,
       t.id AS track_id, t.name AS track_name, t.created_at AS track_created_at
ORDER BY r.created_at DESC
LIMIT $limit
`, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	recs, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]race.Race, 0, len(recs))
	for _, rec := range recs {
		rc, err := raceFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func recString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recInt(rec *neo4j.Record, key string) int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func recUUID(rec *neo4j.Record, key string) (uuid.UUID, error) {
	raw := recString(rec, key)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("graph: bad %s %q: %w", key, raw, err)
	}
	return id, nil
}

func recTime(rec *neo4j.Record, key string) time.Time {
	raw := recString(rec, key)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// catalogFromRecord reads id/name/created_at columns, optionally prefixed ("track_").
func catalogFromRecord(rec *neo4j.Record, kind race.CatalogKind, prefix string) (race.CatalogItem, error) {
	id, err := recUUID(rec, prefix+"id")
	if err != nil {
		return race.CatalogItem{}, err
	}
	return race.CatalogItem{
		ID:        id,
		Kind:      kind,
		Name:      recString(rec, prefix+"name"),
		CreatedAt: recTime(rec, prefix+"created_at"),
	}, nil
}

func raceFromRecord(rec *neo4j.Record) (race.Race, error) {
	id, err := recUUID(rec, "race_id")
	if err != nil {
		return race.Race{}, err
	}
	track, err := catalogFromRecord(rec, race.KindTrack, "track_")
	if err != nil {
		return race.Race{}, err
	}
	return race.Race{
		ID:        id,
		Mode:      race.Mode(recString(rec, "mode")),
		Track:     track,
		CreatedAt: recTime(rec, "created_at"),
	}, nil
}

func runnerFromRecord(rec *neo4j.Record) (race.Runner, error) {
	id, err := recUUID(rec, "runner_id")
	if err != nil {
		return race.Runner{}, err
	}
	r := race.Runner{
		ID:          id,
		DisplayName: recString(rec, "display_name"),
		CreatedAt:   recTime(rec, "runner_created_at"),
	}
	if uid := recString(rec, "user_id"); uid != "" {
		r.ExternalUserID = &uid
	}
	choices := []struct {
		dst    *race.CatalogItem
		kind   race.CatalogKind
		prefix string
	}{
		{&r.Character, race.KindCharacter, "character_"},
		{&r.Kart, race.KindKart, "kart_"},
		{&r.Wheel, race.KindWheel, "wheel_"},
		{&r.Glider, race.KindGlider, "glider_"},
	}
	for _, ch := range choices {
		item, err := catalogFromRecord(rec, ch.kind, ch.prefix)
		if err != nil {
			return race.Runner{}, err
		}
		*ch.dst = item
	}
	return r, nil
}
