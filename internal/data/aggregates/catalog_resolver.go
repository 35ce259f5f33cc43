package aggregates

import (
	"context"

	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/domain/race"
)

const opCatalogResolve = "catalog.resolve"

// CatalogResolver maps (kind, name) to its single catalog node, creating it on first use.
type CatalogResolver struct {
	deps BaseDeps
}

var _ domainagg.CatalogAggregate = (*CatalogResolver)(nil)

func NewCatalogResolver(deps BaseDeps) *CatalogResolver {
	return &CatalogResolver{deps: deps.withDefaults()}
}

func (a *CatalogResolver) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:             "catalog",
		WriteTxOwnership: domainagg.WriteTxOwnedByAggregate,
		Idempotency:      domainagg.IdempotencyPerSubOperation,
		Notes:            "merge by (kind, name); concurrent callers converge on one node",
	}
}

// Resolve runs a single merge in its own transaction.
func (a *CatalogResolver) Resolve(ctx context.Context, kind race.CatalogKind, name string) (race.CatalogItem, error) {
	name, err := validateCatalogRef(opCatalogResolve, "name", kind, name)
	if err != nil {
		return race.CatalogItem{}, err
	}
	var item race.CatalogItem
	err = executeWrite(ctx, a.deps, opCatalogResolve, func(tx graph.Tx) error {
		var err error
		item, err = tx.MergeCatalogItem(ctx, kind, name)
		return err
	})
	if err != nil {
		return race.CatalogItem{}, err
	}
	return item, nil
}

// ResolveInTx merges inside a caller-owned transaction. Storage errors are returned unmapped.
func (a *CatalogResolver) ResolveInTx(ctx context.Context, tx graph.Tx, kind race.CatalogKind, name string) (race.CatalogItem, error) {
	name, err := validateCatalogRef(opCatalogResolve, "name", kind, name)
	if err != nil {
		return race.CatalogItem{}, err
	}
	return tx.MergeCatalogItem(ctx, kind, name)
}

func validateCatalogRef(op, field string, kind race.CatalogKind, name string) (string, error) {
	if !kind.Valid() {
		return "", domainagg.NewFieldError(op, "kind", "unknown catalog kind "+string(kind))
	}
	name = race.NormalizeName(name)
	if name == "" {
		return "", domainagg.NewFieldError(op, field, "is required")
	}
	return name, nil
}
