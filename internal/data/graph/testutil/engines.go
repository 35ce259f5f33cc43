package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/racegraph/internal/data/db"
	"github.com/yungbote/racegraph/internal/data/graph"
	"github.com/yungbote/racegraph/internal/platform/neo4jdb"
)

const (
	envNeo4jURI      = "TEST_NEO4J_URI"
	envNeo4jUser     = "TEST_NEO4J_USER"
	envNeo4jPassword = "TEST_NEO4J_PASSWORD"
	envNeo4jDatabase = "TEST_NEO4J_DATABASE"
	envPostgresDSN   = "TEST_POSTGRES_DSN"
)

// Engine opens one graph store backend for a test.
type Engine struct {
	Name string
	Open func(tb testing.TB) graph.Store
}

// Engines lists SQLite plus every server backend configured through TEST_* env vars.
// Server stores are shared between runs, so tests against them must key their data with
// Unique names instead of counting rows.
func Engines() []Engine {
	engines := []Engine{{
		Name: graph.BackendSQLite,
		Open: func(tb testing.TB) graph.Store { return SQLiteStore(tb) },
	}}
	if strings.TrimSpace(os.Getenv(envPostgresDSN)) != "" {
		engines = append(engines, Engine{
			Name: graph.BackendPostgres,
			Open: func(tb testing.TB) graph.Store { return PostgresStore(tb) },
		})
	}
	if strings.TrimSpace(os.Getenv(envNeo4jURI)) != "" {
		engines = append(engines, Engine{
			Name: graph.BackendNeo4j,
			Open: func(tb testing.TB) graph.Store { return Neo4jStore(tb) },
		})
	}
	return engines
}

// Unique suffixes name with a random token so runs against a shared server never collide.
func Unique(name string) string {
	return name + " " + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// PostgresStore opens the relational graph at TEST_POSTGRES_DSN. It skips without it.
func PostgresStore(tb testing.TB) *graph.SQLStore {
	tb.Helper()
	dsn := strings.TrimSpace(os.Getenv(envPostgresDSN))
	if dsn == "" {
		tb.Skipf("set %s to run Postgres graph store tests", envPostgresDSN)
	}
	log := Logger(tb)
	gdb, err := db.OpenPostgres(dsn, db.PoolOptions{MaxOpenConns: 20, MaxIdleConns: 5}, log)
	if err != nil {
		tb.Fatalf("open postgres: %v", err)
	}
	store := graph.NewSQLStore(gdb, graph.BackendPostgres, log)
	if err := store.EnsureSchema(context.Background()); err != nil {
		tb.Fatalf("ensure schema: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

// Neo4jStore opens the graph at TEST_NEO4J_URI with its constraints installed. It skips
// without it.
func Neo4jStore(tb testing.TB) *graph.Neo4jStore {
	tb.Helper()
	uri := strings.TrimSpace(os.Getenv(envNeo4jURI))
	if uri == "" {
		tb.Skipf("set %s to run Neo4j graph store tests", envNeo4jURI)
	}
	log := Logger(tb)
	client, err := neo4jdb.New(log, neo4jdb.Options{
		URI:      uri,
		User:     os.Getenv(envNeo4jUser),
		Password: os.Getenv(envNeo4jPassword),
		Database: os.Getenv(envNeo4jDatabase),
		Timeout:  10 * time.Second,
	})
	if err != nil {
		tb.Fatalf("open neo4j: %v", err)
	}
	store := graph.NewNeo4jStore(client, log)
	if err := store.EnsureSchema(context.Background()); err != nil {
		tb.Fatalf("ensure schema: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}
