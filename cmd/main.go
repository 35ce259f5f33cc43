package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/racegraph/internal/app"
	"github.com/yungbote/racegraph/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		return 1
	}
	defer a.Close()

	a.Start()
	if err := a.Run(ctx); err != nil {
		a.Log.Error("server exited", "error", err)
		return 1
	}
	a.Log.Info("server stopped")
	return 0
}
