package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/yungbote/racegraph/internal/app"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/services"
)

func main() {
	os.Exit(run(os.Stdout))
}

// run returns the process exit code so deferred cleanup runs on every path.
func run(stdout io.Writer) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(stdout, "load config: %v\n", err)
		return 1
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(stdout, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx := context.Background()
	cfg.SchemaInit = false
	store, err := app.OpenStore(ctx, log, cfg, nil)
	if err != nil {
		log.Error("graph store unreachable", "backend", cfg.StoreBackend, "error", err)
		return 1
	}
	defer store.Close(ctx)

	rdb, eventBus, err := app.OpenBus(log, cfg)
	if err != nil {
		log.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		return 1
	}
	defer eventBus.Close()

	var redisPing func(ctx context.Context) error
	if rdb != nil {
		defer rdb.Close()
		redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	status := services.NewHealthService(log, store, redisPing).Check(ctx)
	out, _ := json.Marshal(status)
	fmt.Fprintln(stdout, string(out))
	if !status.Healthy() {
		return 1
	}
	return 0
}
