package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/yungbote/racegraph/internal/app"
	"github.com/yungbote/racegraph/internal/data/aggregates"
	"github.com/yungbote/racegraph/internal/platform/logger"
	"github.com/yungbote/racegraph/internal/seed"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup runs on every path.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("seed_races", flag.ContinueOnError)
	fs.SetOutput(stdout)
	file := fs.String("file", "", "YAML file of race reports (default: embedded sample races)")
	repeat := fs.Int("repeat", 1, "record every report this many times")
	if err := fs.Parse(args); err != nil {
		return 2
	}

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

	reports, err := seed.Load(*file)
	if err != nil {
		log.Error("load seed races", "error", err)
		return 1
	}

	ctx := context.Background()
	store, err := app.OpenStore(ctx, log, cfg, nil)
	if err != nil {
		log.Error("open graph store", "error", err)
		return 1
	}
	defer store.Close(ctx)

	results := aggregates.NewRaceResultStore(aggregates.BaseDeps{Store: store, Log: log})
	recorded := 0
	for n := 0; n < *repeat; n++ {
		for i, report := range reports {
			raceID, err := results.RecordFinishedRace(ctx, report)
			if err != nil {
				log.Error("record seed race", "index", i, "track", report.Track.Name, "error", err)
				return 1
			}
			fmt.Fprintf(stdout, "  -> race %s on %s (%d runners)\n", raceID, report.Track.Name, len(report.Players))
			recorded++
		}
	}
	fmt.Fprintf(stdout, "seeded %d races into %s\n", recorded, store.Backend())
	return 0
}
