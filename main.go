package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/stupside/kisskh/cmd"
)

const (
	exitFailure     = 1
	exitNoLinks     = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	level := slog.LevelInfo
	if slices.Contains(os.Args[1:], "--debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(ctx, cmd.Root().Run(ctx, os.Args))
}

// exitCode logs the outcome of a run and maps it to a process exit status.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return 0
	case context.Cause(ctx) != nil:
		slog.InfoContext(ctx, "shutting down", "cause", context.Cause(ctx))
		return exitInterrupted
	case errors.Is(err, cmd.ErrNoLinks):
		slog.ErrorContext(ctx, "nothing to save", "error", err)
		return exitNoLinks
	default:
		slog.ErrorContext(ctx, "application error", "error", err)
		return exitFailure
	}
}
