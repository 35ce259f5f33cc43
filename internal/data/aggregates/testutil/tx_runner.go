package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/racegraph/internal/data/graph"
)

// InjectedTxRunner injects begin/commit failures around aggregate writes. With Store set,
// the body runs in a real write transaction and FailCommit is raised inside it, so the
// store genuinely rolls back. Without a Store the body receives a nil Tx.
type InjectedTxRunner struct {
	mu sync.Mutex

	Store graph.Store

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(tx graph.Tx) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	store := r.Store
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	body := func(tx graph.Tx) error {
		if fn != nil {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return failCommit
	}

	var err error
	if store != nil {
		err = store.ExecuteWrite(ctx, body)
	} else {
		err = body(nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}
