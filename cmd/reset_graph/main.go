package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/yungbote/racegraph/internal/app"
	"github.com/yungbote/racegraph/internal/platform/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup runs on every path.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("reset_graph", flag.ContinueOnError)
	fs.SetOutput(stdout)
	yes := fs.Bool("yes", false, "confirm deleting every race, runner, position and catalog item")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(stdout, "load config: %v\n", err)
		return 1
	}
	if !*yes {
		fmt.Fprintf(stdout, "refusing to reset the %s graph without -yes\n", cfg.StoreBackend)
		return 2
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(stdout, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx := context.Background()
	store, err := app.OpenStore(ctx, log, cfg, nil)
	if err != nil {
		log.Error("open graph store", "error", err)
		return 1
	}
	defer store.Close(ctx)

	if err := store.Reset(ctx); err != nil {
		log.Error("reset graph", "backend", store.Backend(), "error", err)
		return 1
	}
	log.Warn("graph reset", "backend", store.Backend())
	return 0
}
