package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/yungbote/racegraph/internal/data/graph"
)

const (
	envPrefix     = "RACEGRAPH_"
	envConfigFile = "RACEGRAPH_CONFIG"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the process configuration. Keys are flat so RACEGRAPH_NEO4J_URI maps to neo4j_uri.
type Config struct {
	LogMode     string `koanf:"log_mode"`
	Addr        string `koanf:"addr"`
	Environment string `koanf:"environment"`
	Version     string `koanf:"version"`

	StoreBackend string `koanf:"store_backend"`
	SchemaInit   bool   `koanf:"schema_init"`

	Neo4jURI            string `koanf:"neo4j_uri"`
	Neo4jUser           string `koanf:"neo4j_user"`
	Neo4jPassword       string `koanf:"neo4j_password"`
	Neo4jDatabase       string `koanf:"neo4j_database"`
	Neo4jTimeoutSeconds int    `koanf:"neo4j_timeout_seconds"`
	Neo4jMaxPoolSize    int    `koanf:"neo4j_max_pool_size"`

	PostgresDSN string `koanf:"postgres_dsn"`
	SQLitePath  string `koanf:"sqlite_path"`

	RedisAddr    string `koanf:"redis_addr"`
	RedisChannel string `koanf:"redis_channel"`

	MetricsEnabled bool `koanf:"metrics_enabled"`

	OtelEnabled     bool    `koanf:"otel_enabled"`
	OtelEndpoint    string  `koanf:"otel_endpoint"`
	OtelInsecure    bool    `koanf:"otel_insecure"`
	OtelHeaders     string  `koanf:"otel_headers"`
	OtelSampleRatio float64 `koanf:"otel_sample_ratio"`

	CORSOrigins string `koanf:"cors_origins"`
}

// DefaultConfig returns the settings used when nothing else is provided.
func DefaultConfig() Config {
	return Config{
		LogMode:             "development",
		Addr:                ":8080",
		Environment:         "local",
		Version:             "dev",
		StoreBackend:        graph.BackendNeo4j,
		SchemaInit:          true,
		Neo4jURI:            "neo4j://localhost:7687",
		Neo4jUser:           "neo4j",
		Neo4jDatabase:       "neo4j",
		Neo4jTimeoutSeconds: 10,
		Neo4jMaxPoolSize:    50,
		SQLitePath:          "racegraph.db",
		RedisChannel:        "racegraph.races",
		OtelSampleRatio:     0.1,
	}
}

// LoadConfig layers defaults, the optional YAML file named by RACEGRAPH_CONFIG and
// RACEGRAPH_* env vars, lowest to highest precedence.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env config: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects an unknown backend and a backend without its connection settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case graph.BackendNeo4j:
		if strings.TrimSpace(c.Neo4jURI) == "" {
			return fmt.Errorf("%w: neo4j_uri is required for the neo4j backend", ErrInvalidConfig)
		}
		if strings.TrimSpace(c.Neo4jUser) == "" {
			return fmt.Errorf("%w: neo4j_user is required for the neo4j backend", ErrInvalidConfig)
		}
	case graph.BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres backend", ErrInvalidConfig)
		}
	case graph.BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.Neo4jTimeoutSeconds < 0 || c.Neo4jMaxPoolSize < 0 {
		return fmt.Errorf("%w: neo4j timeout and pool size must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Neo4jTimeout() time.Duration {
	return time.Duration(c.Neo4jTimeoutSeconds) * time.Second
}

// AllowedOrigins splits cors_origins; empty means the built-in local origins.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
