package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/domain/race"
)

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means aggregate write methods start/manage atomic transactions internally.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// IdempotencyScope records at which level repeated submissions converge.
type IdempotencyScope string

const (
	// IdempotencyPerSubOperation: catalog merges and position attaches converge, whole reports do not.
	IdempotencyPerSubOperation IdempotencyScope = "sub_operation"
)

// Contract describes aggregate-level policy expectations.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	Idempotency      IdempotencyScope
	Notes            string
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}

// RequiresAggregateOwnedTx returns true when write transaction ownership is aggregate-owned.
func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// RaceResultAggregate commits one finished-race report as a single atomic subgraph.
//
// Every call creates a new race: resubmitting the same report yields a second race id that
// shares catalog nodes with the first but has its own runners and positions.
type RaceResultAggregate interface {
	Aggregate
	RecordFinishedRace(ctx context.Context, report race.Report) (uuid.UUID, error)
}

// CatalogAggregate merges catalog references by their natural (kind, name) key.
type CatalogAggregate interface {
	Aggregate
	Resolve(ctx context.Context, kind race.CatalogKind, name string) (race.CatalogItem, error)
}
