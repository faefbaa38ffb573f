package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
)

func main() {
	cfg, paths, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(paths) == 0 {
		fmt.Fprint(os.Stderr, "Usage: avfrip [flags] <file.avf|dir>...\n")
		os.Exit(2)
	}

	if cfg.Info {
		status := 0
		for _, p := range paths {
			if err := printInfo(os.Stdout, p); err != nil {
				fmt.Fprintln(os.Stderr, "info error:", err)
				status = 1
			}
		}
		os.Exit(status)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, paths, logger); err != nil {
		logger.Error("run failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, paths []string, logger *slog.Logger) error {
	start := time.Now()
	logger.Debug("configuration",
		"output", cfg.Output,
		"format", cfg.Format,
		"workers", cfg.Workers,
		"queue_size", cfg.QueueSize,
		"jobs", cfg.Jobs,
		"strict", cfg.Strict)

	files, err := collectInputs(paths, logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return err
	}

	failed, err := convertAll(ctx, cfg, files, logger)
	logger.Info("process completed",
		"files", len(files),
		"failed", failed,
		"elapsed", time.Since(start))
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
