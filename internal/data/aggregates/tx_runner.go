package aggregates

import (
	"context"

	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
)

// TxRunner provides the transaction boundary for aggregate writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx graph.Tx) error) error
}

type storeTxRunner struct {
	store graph.Store
}

// NewStoreTxRunner returns a runner backed by the store's write transactions.
func NewStoreTxRunner(store graph.Store) TxRunner {
	return &storeTxRunner{store: store}
}

func (r *storeTxRunner) InTx(ctx context.Context, fn func(tx graph.Tx) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.store == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil store", nil)
	}
	return r.store.ExecuteWrite(ctx, fn)
}
