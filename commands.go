package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"natjus/internal/app"
	"natjus/internal/checkpoint"
	"natjus/internal/config"
	"natjus/internal/extraction"
	"natjus/internal/indexing"
	"natjus/internal/pipeline"
	"natjus/internal/results"
	"natjus/internal/textextract"
)

type command func(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error

var commands = map[string]command{
	"extract": runExtract,
	"index":   runIndex,
	"serve":   runServe,
}

func resultPaths(cfg *config.Config) results.Paths {
	return results.Paths{JSON: cfg.ResultsJSONPath, CSV: cfg.ResultsCSVPath, XLSX: cfg.ResultsXLSXPath}
}

func runExtract(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "maximum number of pending documents to process (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cfg.EnsureOutputDir(); err != nil {
		return err
	}
	cp, err := checkpoint.Load(cfg.CheckpointPath)
	if err != nil {
		return err
	}
	res, err := results.Load(resultPaths(cfg))
	if err != nil {
		return err
	}
	journal, err := pipeline.OpenJournal(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	budget := textextract.Budget{
		Threshold: cfg.PageBudgetThreshold,
		Head:      cfg.PageBudgetHead,
		Tail:      cfg.PageBudgetTail,
	}
	text := textextract.NewExtractor(textextract.PDFOpener{}, budget, logger)
	driver := pipeline.NewDriver(cfg.InputDir, text, extraction.NewEngine(), cp, res).WithJournal(journal)

	if cfg.NSQEnabled {
		deps, err := app.Bootstrap(ctx, cfg, app.Needs{Publisher: true})
		if err != nil {
			return err
		}
		defer deps.Close()
		driver = driver.WithPublisher(deps.NSQProducer)
	}

	sum, err := driver.Run(ctx, pipeline.Options{Limit: *limit})
	if err != nil {
		return fmt.Errorf("extraction aborted: %w", err)
	}

	logger.InfoContext(ctx, "extraction finished",
		"pending", sum.Pending,
		"attempted", sum.Attempted,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"total_processed", sum.TotalProcessed,
		"total_failed", sum.TotalFailed,
		"interrupted", sum.Interrupted,
		"duration", sum.Duration.String(),
	)
	for _, c := range extraction.Coverage(res.Records()) {
		logger.InfoContext(ctx, "field coverage", "field", c.Field, "extracted", c.Extracted, "missing", c.Missing, "rate", c.Rate)
	}
	return nil
}

func runIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	recreate := fs.Bool("recreate", bool(cfg.IndexRecreate), "drop and recreate the index class before submitting")
	batchSize := fs.Int("batch-size", cfg.IndexBatchSize, "documents per index request")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *batchSize < 1 {
		return fmt.Errorf("batch-size must be at least 1, got %d", *batchSize)
	}
	cfg.IndexBatchSize = *batchSize

	res, err := results.Load(resultPaths(cfg))
	if err != nil {
		return err
	}

	deps, err := app.Bootstrap(ctx, cfg, app.Needs{Index: true, Recreate: *recreate, Ledger: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	var recorder indexing.Recorder
	if failures := app.NewFailureService(deps, logger); failures != nil {
		recorder = failures
	}
	sink := app.NewSink(cfg, deps.IndexStore, recorder)

	sum := sink.Index(ctx, res.Records())
	logger.InfoContext(ctx, "indexing finished",
		"class", cfg.IndexClass,
		"submitted", sum.Submitted,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"retries", sum.Retries,
		"backoffs", sum.Backoffs,
		"interrupted", ctx.Err() != nil,
	)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := app.Bootstrap(ctx, cfg, app.Needs{Index: true, Ledger: true, Publisher: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	a, err := app.New(cfg, deps, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	if cfg.NSQEnabled {
		g.Go(func() error { return a.RunConsumer(gctx) })
	}
	return g.Wait()
}
