package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"natjus/internal/config"
	"natjus/internal/logger"
	"natjus/internal/middleware"
)

const usage = `usage: natjus <command> [flags]

commands:
  extract [-limit N]                  extract metadata from pending PDFs
  index [-recreate] [-batch-size N]   submit extracted records to the search index
  serve                               run the HTTP API and the index consumer
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	log, closer, err := logger.New(cfg.LogLevel, cfg.LogFile, os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		return 1
	}
	defer closer.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, runID := middleware.NewRun(ctx)

	slog.InfoContext(ctx, "command started", "command", args[0], "run_id", runID)
	if err := cmd(ctx, cfg, log, args[1:]); err != nil {
		slog.ErrorContext(ctx, "command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}
