package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/racegraph/internal/data/graph"
	"github.com/yungbote/racegraph/internal/domain/race"
)

// ErrInjected is returned by FailingStore when the configured write primitive is reached.
var ErrInjected = errors.New("injected storage failure")

// FailingStore wraps a real store and fails one write primitive partway through a
// transaction, after earlier primitives already ran against the inner transaction.
type FailingStore struct {
	graph.Store

	// FailMergePositionAt fails the n-th MergePosition call (1-based); 0 disables.
	FailMergePositionAt int
	// FailCreateRunnerAt fails the n-th CreateRunner call (1-based); 0 disables.
	FailCreateRunnerAt int

	mu             sync.Mutex
	mergePositions int
	createRunners  int
}

func (s *FailingStore) ExecuteWrite(ctx context.Context, fn func(tx graph.Tx) error) error {
	return s.Store.ExecuteWrite(ctx, func(tx graph.Tx) error {
		return fn(&failingTx{Tx: tx, store: s})
	})
}

func (s *FailingStore) hit(counter *int, at int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return at > 0 && *counter == at
}

type failingTx struct {
	graph.Tx
	store *FailingStore
}

func (t *failingTx) CreateRunner(ctx context.Context, r race.Runner) error {
	if t.store.hit(&t.store.createRunners, t.store.FailCreateRunnerAt) {
		return ErrInjected
	}
	return t.Tx.CreateRunner(ctx, r)
}

func (t *failingTx) MergePosition(ctx context.Context, p race.Position) (bool, error) {
	if t.store.hit(&t.store.mergePositions, t.store.FailMergePositionAt) {
		return false, ErrInjected
	}
	return t.Tx.MergePosition(ctx, p)
}
