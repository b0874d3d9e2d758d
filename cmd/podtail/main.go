package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/podtail/internal/app"
	"github.com/five82/podtail/internal/ui"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(app.Run)
	cmd.Version = version
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		ui.PrintError(os.Stderr, err)
		return 1
	}
	return 0
}
