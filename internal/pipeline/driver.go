package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"natjus/internal/checkpoint"
	"natjus/internal/config"
	"natjus/internal/extraction"
	"natjus/internal/indexing"
	"natjus/internal/middleware"
	"natjus/internal/results"
	"natjus/internal/textextract"
)

type TextExtractor interface {
	Extract(ctx context.Context, path string) (textextract.Result, error)
}

type FieldExtractor interface {
	Extract(text, filename string) extraction.Record
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

type Options struct {
	// Limit caps how many pending documents a run attempts. Zero means all.
	Limit int
}

type Summary struct {
	Pending        int           `json:"pending"`
	Attempted      int           `json:"attempted"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	TotalProcessed int           `json:"total_processed"`
	TotalFailed    int           `json:"total_failed"`
	Interrupted    bool          `json:"interrupted"`
	Duration       time.Duration `json:"duration"`
}

// Driver runs extraction over the input directory, one document at a time,
// persisting the checkpoint and results after each document.
type Driver struct {
	inputDir   string
	text       TextExtractor
	fields     FieldExtractor
	checkpoint *checkpoint.Store
	results    *results.Store
	journal    *Journal
	publisher  Publisher
	now        func() time.Time
}

func NewDriver(inputDir string, text TextExtractor, fields FieldExtractor, cp *checkpoint.Store, res *results.Store) *Driver {
	return &Driver{
		inputDir:   inputDir,
		text:       text,
		fields:     fields,
		checkpoint: cp,
		results:    res,
		now:        time.Now,
	}
}

func (d *Driver) WithJournal(j *Journal) *Driver {
	d.journal = j
	return d
}

// WithPublisher makes the driver publish every extracted record for indexing.
func (d *Driver) WithPublisher(p Publisher) *Driver {
	d.publisher = p
	return d
}

func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// ListPDFs returns the PDF filenames in dir in lexicographic order.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Pending lists the documents that have not reached a terminal state.
func (d *Driver) Pending() ([]string, error) {
	names, err := ListPDFs(d.inputDir)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(names, d.checkpoint.Seen), nil
}

// Run processes pending documents. The returned error is run-fatal: the
// input directory could not be listed or state could not be persisted.
func (d *Driver) Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()
	var sum Summary

	pending, err := d.Pending()
	if err != nil {
		return sum, err
	}
	sum.Pending = len(pending)
	if opts.Limit > 0 && len(pending) > opts.Limit {
		pending = pending[:opts.Limit]
	}

	slog.InfoContext(ctx, "extraction started", "input_dir", d.inputDir, "pending", sum.Pending, "selected", len(pending))

	for _, name := range pending {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}

		docStart := time.Now()
		rec, extracted, procErr := d.process(ctx, name)
		if procErr != nil && ctx.Err() != nil {
			// Interrupted mid-document: leave it pending for the next run.
			sum.Interrupted = true
			break
		}
		sum.Attempted++

		entry := JournalEntry{
			Filename:      name,
			Duration:      time.Since(docStart),
			PageCount:     extracted.PageCount,
			PagesRead:     len(extracted.PagesRead),
			Partial:       extracted.Partial,
			CorrelationID: middleware.GetCorrelationID(ctx),
		}

		if procErr != nil {
			sum.Failed++
			d.results.Remove(name)
			d.checkpoint.MarkFailed(name)
			entry.Status, entry.Reason = "failed", procErr.Error()
			slog.WarnContext(ctx, "document failed", "filename", name, "error", procErr)
		} else {
			sum.Succeeded++
			d.results.Upsert(rec)
			d.checkpoint.MarkSucceeded(name)
			entry.Status = "processed"
			slog.InfoContext(ctx, "document processed",
				"filename", name,
				"pages", extracted.PageCount,
				"pages_read", len(extracted.PagesRead),
				"partial", extracted.Partial,
				"outcome", rec.Outcome,
			)
		}

		if err := d.persist(); err != nil {
			return sum, err
		}
		d.journal.Log(entry)

		if procErr == nil {
			d.publish(ctx, rec)
		}
	}

	if err := d.results.ExportXLSX(); err != nil {
		return sum, err
	}

	snap := d.checkpoint.Snapshot()
	sum.TotalProcessed = len(snap.Processed)
	sum.TotalFailed = len(snap.Failed)
	sum.Duration = time.Since(start)
	return sum, nil
}

func (d *Driver) process(ctx context.Context, name string) (rec extraction.Record, res textextract.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", name, r)
		}
	}()

	path := filepath.Join(d.inputDir, name)
	digest, err := fileSHA256(path)
	if err != nil {
		return rec, res, err
	}

	res, err = d.text.Extract(ctx, path)
	if err != nil {
		return rec, res, err
	}

	rec = d.fields.Extract(res.Text, name)
	rec.TextPartial = res.Partial
	rec.PageCount = res.PageCount
	rec.PagesRead = len(res.PagesRead)
	rec.ContentSHA256 = digest
	rec.ExtractedAt = d.now().UTC()
	return rec, res, nil
}

// persist writes results before the checkpoint. A crash in between leaves the
// document pending, and reprocessing it overwrites the same record.
func (d *Driver) persist() error {
	if err := d.results.Save(); err != nil {
		return err
	}
	return d.checkpoint.Save()
}

func (d *Driver) publish(ctx context.Context, rec extraction.Record) {
	if d.publisher == nil {
		return
	}
	body, err := indexing.EncodeSubmit(rec, middleware.GetCorrelationID(ctx))
	if err == nil {
		err = d.publisher.Publish(config.TopicIndexSubmit, body)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to publish record for indexing", "filename", rec.SourceFilename, "error", err)
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %v", textextract.ErrOpen, path, err)
		}
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
