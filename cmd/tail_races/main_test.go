package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunNeedsRedis(t *testing.T) {
	t.Setenv("RACEGRAPH_STORE_BACKEND", "sqlite")
	t.Setenv("RACEGRAPH_REDIS_ADDR", "")

	var out bytes.Buffer
	if code := run(context.Background(), &out); code != 2 {
		t.Fatalf("want exit 2, got %d", code)
	}
	if !strings.Contains(out.String(), "RACEGRAPH_REDIS_ADDR is not set") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}
