package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/yungbote/racegraph/internal/app"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/platform/shutdown"
	"github.com/yungbote/racegraph/internal/realtime/bus"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	code := run(ctx, os.Stdout)
	stop()
	os.Exit(code)
}

// run tails race events until ctx is done and returns the process exit code.
func run(ctx context.Context, stdout io.Writer) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(stdout, "load config: %v\n", err)
		return 1
	}
	if cfg.RedisAddr == "" {
		fmt.Fprintln(stdout, "RACEGRAPH_REDIS_ADDR is not set; there is no race event stream to tail")
		return 2
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(stdout, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	rdb, eventBus, err := app.OpenBus(log, cfg)
	if err != nil {
		log.Error("open race event bus", "error", err)
		return 1
	}
	defer rdb.Close()
	defer eventBus.Close()

	enc := json.NewEncoder(stdout)
	if err := eventBus.StartForwarder(ctx, func(ev bus.RaceEvent) {
		_ = enc.Encode(ev)
	}); err != nil {
		log.Error("subscribe to race events", "channel", cfg.RedisChannel, "error", err)
		return 1
	}
	log.Info("tailing race events", "channel", cfg.RedisChannel)
	<-ctx.Done()
	return 0
}
