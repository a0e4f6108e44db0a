package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
)

const stopTimeout = 30 * time.Second

type lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan os.Signal
}

// run starts app and blocks until ctx is cancelled or fx requests shutdown.
// It returns the process exit code.
func run(ctx context.Context, app lifecycle) int {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start growthmart: %v\n", err)
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop growthmart: %v\n", err)
		return 1
	}
	return 0
}

var _ lifecycle = (*fx.App)(nil)
