// Package graph persists the race result graph. Two engines implement the same Store:
// Neo4j (labels, relationships and MERGE) and a relational engine over GORM (unique
// indexes and INSERT .. ON CONFLICT DO NOTHING).
package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/domain/race"
)

const (
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ErrMissingReference is returned when a write links to a node that does not exist.
var ErrMissingReference = errors.New("graph: referenced node does not exist")

// Store owns the connection pool. Sessions and transactions are acquired per call and
// released on every exit path.
type Store interface {
	// ExecuteWrite runs fn in one write transaction: fn's writes either all commit or none do.
	// fn may be invoked more than once when the engine retries a transient failure.
	ExecuteWrite(ctx context.Context, fn func(tx Tx) error) error
	ExecuteRead(ctx context.Context, fn func(tx Tx) error) error
	EnsureSchema(ctx context.Context) error
	// Reset removes every race, runner, position and catalog node. Administrative only.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Backend() string
}

// Tx exposes the write primitives and invariant-scoped reads of the race graph.
type Tx interface {
	// MergeCatalogItem returns the item keyed by (kind, name), creating it if absent.
	MergeCatalogItem(ctx context.Context, kind race.CatalogKind, name string) (race.CatalogItem, error)
	// CreateRunner inserts the runner and its four choice edges in one statement.
	// The choice items must carry ids of existing catalog nodes.
	CreateRunner(ctx context.Context, r race.Runner) error
	// CreateRace inserts the race and its track edge. r.Track.ID must exist.
	CreateRace(ctx context.Context, r race.Race) error
	// MergePosition creates the (race, runner) position fact and the participation edge
	// if absent. Reports whether the position was created by this call.
	MergePosition(ctx context.Context, p race.Position) (bool, error)

	FindCatalogItem(ctx context.Context, kind race.CatalogKind, name string) (*race.CatalogItem, error)
	GetRunner(ctx context.Context, id uuid.UUID) (*race.Runner, error)
	GetRace(ctx context.Context, id uuid.UUID) (*race.RaceResult, error)
	ListRaces(ctx context.Context, limit int) ([]race.Race, error)
}
