package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/svanichkin/avfrip/avf"
	"golang.org/x/sync/errgroup"
)

// convertFile decodes one AVF file into cfg.Output and returns the number of
// frames written.
func convertFile(ctx context.Context, cfg Config, path string, logger *slog.Logger) (int, error) {
	logger = logger.With("file", path)
	data, err := readInput(path)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		logger.InfoContext(ctx, "empty file, skipping")
		return 0, nil
	}

	sink, err := newFileSink(cfg.Output, stem(path), cfg.Format)
	if err != nil {
		return 0, err
	}
	dec := avf.NewDecoder(
		avf.WithWorkers(cfg.Workers),
		avf.WithQueueSize(cfg.QueueSize),
		avf.WithStrictSize(cfg.Strict),
		avf.WithLogger(logger),
	)

	start := time.Now()
	res, err := dec.Decode(ctx, data, sink)
	if res == nil {
		return 0, err
	}
	logger.InfoContext(ctx, "file converted",
		"width", res.Header.Width,
		"height", res.Header.Height,
		"frames", res.Frames,
		"saved", sink.Saved(),
		"diagnostics", len(res.Diagnostics),
		"elapsed", time.Since(start))
	return res.Frames, err
}

// collectInputs expands directories into the AVF files they contain.
// Files named on the command line are taken as they are.
func collectInputs(paths []string, logger *slog.Logger) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			switch {
			case filepath.Ext(name) == "":
				logger.Info("file has no extension, skipping", "file", name)
			case !isAVF(name):
				logger.Info("not an AVF file, skipping", "file", name)
			default:
				files = append(files, filepath.Join(p, name))
			}
		}
	}
	return files, nil
}

// convertAll converts files with at most cfg.Jobs in flight. A failed file is
// logged and counted; the others go on.
func convertAll(ctx context.Context, cfg Config, files []string, logger *slog.Logger) (int, error) {
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for _, path := range files {
		path := path
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := convertFile(gctx, cfg, path, logger); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				failed.Add(1)
				logger.ErrorContext(gctx, "conversion failed", "file", path, "error", err)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return int(failed.Load()), fmt.Errorf("conversion interrupted: %w", err)
	}
	return int(failed.Load()), nil
}
