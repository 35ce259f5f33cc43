package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yungbote/racegraph/internal/data/db"
	"github.com/yungbote/racegraph/internal/data/graph"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// SQLiteStore opens a fresh migrated race graph in a temp directory. It is closed when the
// test ends.
func SQLiteStore(tb testing.TB) *graph.SQLStore {
	tb.Helper()
	log := Logger(tb)
	gdb, err := db.OpenSQLite(filepath.Join(tb.TempDir(), "racegraph.db"), log)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	store := graph.NewSQLStore(gdb, graph.BackendSQLite, log)
	if err := store.EnsureSchema(context.Background()); err != nil {
		tb.Fatalf("ensure schema: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

// Count returns the number of rows in a race graph table.
func Count(tb testing.TB, store *graph.SQLStore, table string, where string, args ...any) int64 {
	tb.Helper()
	q := store.DB().Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		tb.Fatalf("count %s: %v", table, err)
	}
	return n
}
