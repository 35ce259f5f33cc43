package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/racegraph/internal/data/graph"
	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/platform/ctxutil"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

type BaseDeps struct {
	Store  graph.Store
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewStoreTxRunner(d.Store)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return d
}

// executeWrite runs fn in one transaction and maps whatever escapes it. fn must return raw
// storage errors so the engine can still recognise and retry transient ones.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(tx graph.Tx) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if isTransient(err) {
			deps.Hooks.IncRetry(op)
		}
		fields := append([]interface{}{"op", op, "code", status, "error", err}, ctxutil.LogFields(ctx)...)
		if domainagg.IsCode(mapped, domainagg.CodePersistence) || domainagg.IsCode(mapped, domainagg.CodeInternal) {
			deps.Log.Error("aggregate write rolled back", fields...)
		} else {
			deps.Log.Debug("aggregate write rejected", fields...)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
