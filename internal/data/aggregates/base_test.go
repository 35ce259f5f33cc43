package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/racegraph/internal/data/aggregates/testutil"
	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &testutil.HooksRecorder{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: &testutil.InjectedTxRunner{},
		Hooks:  hooks,
	}, "aggregate.test.success", func(_ graph.Tx) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if got := hooks.Statuses("aggregate.test.success"); len(got) != 1 || got[0] != "success" {
		t.Fatalf("operation statuses: %+v", got)
	}
}

func TestExecuteWriteMapsStorageFailureToPersistence(t *testing.T) {
	hooks := &testutil.HooksRecorder{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: &testutil.InjectedTxRunner{FailCommit: errors.New("connection reset by peer")},
		Hooks:  hooks,
	}, "aggregate.test.persistence", func(_ graph.Tx) error { return nil })
	if !domainagg.IsPersistence(err) {
		t.Fatalf("expected persistence code, got=%v", err)
	}
	if got := hooks.Statuses("aggregate.test.persistence"); len(got) != 1 || got[0] != string(domainagg.CodePersistence) {
		t.Fatalf("operation statuses: %+v", got)
	}
	if len(hooks.Conflicts) != 0 || len(hooks.Retries) != 0 {
		t.Fatalf("unexpected counters conflicts=%+v retries=%+v", hooks.Conflicts, hooks.Retries)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &testutil.HooksRecorder{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: &testutil.InjectedTxRunner{},
			Hooks:  hooks,
		}, "aggregate.test.conflict", func(_ graph.Tx) error {
			return ConflictError("duplicate rank")
		})
		if !domainagg.IsConflict(err) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "aggregate.test.conflict" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
	})

	t.Run("transient", func(t *testing.T) {
		hooks := &testutil.HooksRecorder{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: &testutil.InjectedTxRunner{},
			Hooks:  hooks,
		}, "aggregate.test.retry", func(_ graph.Tx) error {
			return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		})
		if !domainagg.IsPersistence(err) {
			t.Fatalf("expected persistence code, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "aggregate.test.retry" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
	})
}

func TestExecuteWriteDefaultsOperationName(t *testing.T) {
	hooks := &testutil.HooksRecorder{}
	_ = executeWrite(context.Background(), BaseDeps{
		Runner: &testutil.InjectedTxRunner{},
		Hooks:  hooks,
	}, "  ", func(_ graph.Tx) error { return nil })
	if got := hooks.Statuses("aggregate.write"); len(got) != 1 {
		t.Fatalf("expected default op name, got %+v", hooks.Operations)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(ValidationError("x")); got != string(domainagg.CodeValidation) {
		t.Fatalf("validation status: got=%s", got)
	}
	if got := aggregateErrorStatus(ConflictError("x")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodePersistence) {
		t.Fatalf("deadline status: got=%s", got)
	}
}
