package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"

	"github.com/AjayaPrabhu/lcablesync/internal/app"
	"github.com/AjayaPrabhu/lcablesync/internal/async"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/export"
	"github.com/AjayaPrabhu/lcablesync/internal/ingest"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
	"github.com/AjayaPrabhu/lcablesync/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// collector keeps every result in memory and optionally forwards it to a store.
type collector struct {
	mu      sync.Mutex
	results []*pipeline.Result
	store   repository.ResultStore
}

func (c *collector) Save(ctx context.Context, res *pipeline.Result) error {
	c.mu.Lock()
	c.results = append(c.results, res)
	c.mu.Unlock()
	if c.store != nil {
		return c.store.Save(ctx, res)
	}
	return nil
}

func main() {
	var (
		file     = flag.String("file", "", "single PDF to process")
		dir      = flag.String("dir", "", "directory to process PDFs from (recursive)")
		out      = flag.String("out", "", "output XLSX file path (optional)")
		ref      = flag.String("ref", "", "reference workbook (overrides REFERENCE_XLSX)")
		forceOCR = flag.Bool("force-ocr", false, "always run recognition on the first page")
		workers  = flag.Int("workers", 0, "parallel documents (default from config)")
		persist  = flag.Bool("store", false, "also save results to the configured store")
	)
	flag.Parse()

	if (*file == "") == (*dir == "") {
		printError("Error: exactly one of --file or --dir is required\n")
		os.Exit(2)
	}

	cfg, err := common.Load()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *ref != "" {
		cfg.Reference.Path = *ref
	}
	if *forceOCR {
		cfg.Pipeline.ForceOCR = true
	}
	if *workers > 0 {
		cfg.Ingest.Workers = *workers
	}

	// results go to stdout, logs to stderr
	logger := app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := app.Bootstrap(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	sink := &collector{}
	if *persist {
		store, err := repository.Open(ctx, cfg.Store, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		sink.store = store
	}

	paths := []string{*file}
	if *dir != "" {
		var stats ingest.DirStats
		paths, stats, err = ingest.ListDirectory(ctx, *dir, nil, true, logger)
		if err != nil {
			logger.Error("failed to list directory", "error", err)
			os.Exit(1)
		}
		logger.Info("directory scanned", "dir", *dir, "matched", stats.Matched, "skipped", stats.Skipped)
	}

	q := async.NewProcessorQueue(rt.Processor, sink, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(len(paths)+1),
		async.WithProcessTimeout(cfg.Pipeline.DocumentTimeout),
		async.WithReadConfig(ingest.ReadConfig{Attempts: cfg.Pipeline.ReadAttempts, Delay: cfg.Pipeline.ReadDelay}),
	)
	for _, p := range paths {
		if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
			logger.Warn("enqueue failed", "path", p, "error", err)
		}
	}
	q.Shutdown(context.Background())

	results := sink.results
	sort.Slice(results, func(i, j int) bool { return results[i].SourcePath < results[j].SourcePath })

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		logger.Error("failed to write results", "error", err)
		os.Exit(1)
	}

	if *out != "" {
		data, err := export.ResultsXLSX(results)
		if err != nil {
			logger.Error("failed to build workbook", "error", err)
			os.Exit(1)
		}
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			logger.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			logger.Error("failed to write workbook", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("workbook written", "path", *out, "rows", len(results))
	}

	st := q.Stats()
	logger.Info("batch complete", "documents", len(paths), "processed", st.Processed, "failed", st.Failed, "sink_errors", st.SinkErrs)
	if st.Failed > 0 || st.SinkErrs > 0 {
		os.Exit(1)
	}
}
