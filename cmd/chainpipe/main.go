package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainpipe/chainpipe/internal/cli/chainpipe"
	"github.com/chainpipe/chainpipe/internal/config"
	"github.com/chainpipe/chainpipe/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("chainpipe")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	runID := observability.NewRunID()
	logger := observability.NewLogger(cfg, os.Stderr).With(slog.String("run_id", runID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.ContextWithRunID(ctx, runID)

	code := chainpipe.Run(ctx, os.Args[1:], chainpipe.Options{
		Config: cfg,
		Logger: logger,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
