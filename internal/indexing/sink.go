package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"natjus/internal/extraction"
)

// Writer submits documents to the index. The returned slice holds one entry
// per document (nil on success); the error is set when the whole request failed.
type Writer interface {
	PutBatch(ctx context.Context, docs []Document) ([]error, error)
}

// Recorder keeps a durable trail of documents the index rejected.
type Recorder interface {
	RecordFailure(ctx context.Context, rec extraction.Record, reason string) error
}

// Resolver is implemented by recorders that clear a document's trail once it
// has been indexed.
type Resolver interface {
	ResolveFailure(ctx context.Context, filename string) error
}

type SinkConfig struct {
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
	// AttachDir, when set, is where source PDFs are read from to be
	// attached to their documents.
	AttachDir string
}

type Summary struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Retries   int `json:"retries"`
	Backoffs  int `json:"backoffs"`
}

type Sink struct {
	writer   Writer
	recorder Recorder
	cfg      SinkConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewSink(w Writer, cfg SinkConfig) *Sink {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Sink{writer: w, cfg: cfg, sleep: sleepContext}
}

func (s *Sink) WithRecorder(r Recorder) *Sink {
	s.recorder = r
	return s
}

func (s *Sink) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Sink {
	s.sleep = fn
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Index submits every record in filename order. Failures are counted and
// recorded; they never stop the run.
func (s *Sink) Index(ctx context.Context, records []extraction.Record) Summary {
	var sum Summary

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b extraction.Record) int {
		return strings.Compare(a.SourceFilename, b.SourceFilename)
	})

	slog.InfoContext(ctx, "indexing started", "documents", len(sorted), "batch_size", s.cfg.BatchSize)

	for start := 0; start < len(sorted); start += s.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+s.cfg.BatchSize, len(sorted))
		s.submitBatch(ctx, sorted[start:end], &sum)
	}

	slog.InfoContext(ctx, "indexing finished",
		"submitted", sum.Submitted,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"retries", sum.Retries,
		"backoffs", sum.Backoffs,
	)
	return sum
}

// Submit indexes a single record and returns its failure, if any.
func (s *Sink) Submit(ctx context.Context, rec extraction.Record) error {
	var sum Summary
	errs := s.submitBatch(ctx, []extraction.Record{rec}, &sum)
	return errs[0]
}

func (s *Sink) submitBatch(ctx context.Context, recs []extraction.Record, sum *Summary) []error {
	results := make([]error, len(recs))

	docs := make([]Document, 0, len(recs))
	ready := make([]extraction.Record, 0, len(recs))
	positions := make([]int, 0, len(recs))
	for i, rec := range recs {
		doc := Project(rec)
		if s.cfg.AttachDir != "" {
			if err := doc.Attach(s.cfg.AttachDir); err != nil {
				sum.Failed++
				results[i] = err
				s.fail(ctx, rec, err)
				continue
			}
		}
		docs = append(docs, doc)
		ready = append(ready, rec)
		positions = append(positions, i)
	}
	if len(docs) == 0 {
		return results
	}

	sum.Submitted += len(docs)
	itemErrs, err := s.put(ctx, docs, sum)
	for k, rec := range ready {
		itemErr := err
		if itemErr == nil && k < len(itemErrs) {
			itemErr = itemErrs[k]
		}
		results[positions[k]] = itemErr
		if itemErr != nil {
			sum.Failed++
			s.fail(ctx, rec, itemErr)
			continue
		}
		sum.Succeeded++
		s.resolve(ctx, rec)
	}
	return results
}

// put sends one request, retrying transient failures with exponential backoff.
// When retries run out the sink pauses for Backoff before returning.
func (s *Sink) put(ctx context.Context, docs []Document, sum *Summary) ([]error, error) {
	for attempt := 0; ; attempt++ {
		reqCtx, cancel := s.requestContext(ctx)
		itemErrs, err := s.writer.PutBatch(reqCtx, docs)
		cancel()
		if err == nil {
			return itemErrs, nil
		}
		if !IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}

		if attempt >= s.cfg.MaxRetries {
			sum.Backoffs++
			slog.WarnContext(ctx, "index backpressure, pausing",
				"documents", len(docs),
				"attempts", attempt+1,
				"pause", s.cfg.Backoff,
				"error", err,
			)
			_ = s.sleep(ctx, s.cfg.Backoff)
			return nil, fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, err)
		}

		sum.Retries++
		delay := retryDelay(s.cfg.Backoff, attempt)
		slog.InfoContext(ctx, "index submission retrying", "attempt", attempt+1, "delay", delay, "error", err)
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

// maxRetryDelay caps the exponential retry delay. A configured Backoff above
// it is used as is.
const maxRetryDelay = 5 * time.Minute

func retryDelay(base time.Duration, attempt int) time.Duration {
	limit := max(base, maxRetryDelay)
	d := base
	for i := 0; i < attempt && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}

func (s *Sink) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Sink) fail(ctx context.Context, rec extraction.Record, err error) {
	slog.ErrorContext(ctx, "index submission failed", "filename", rec.SourceFilename, "error", err)
	if s.recorder == nil {
		return
	}
	if recErr := s.recorder.RecordFailure(ctx, rec, err.Error()); recErr != nil {
		slog.ErrorContext(ctx, "failed to record index failure", "filename", rec.SourceFilename, "error", recErr)
	}
}

func (s *Sink) resolve(ctx context.Context, rec extraction.Record) {
	r, ok := s.recorder.(Resolver)
	if !ok {
		return
	}
	if err := r.ResolveFailure(ctx, rec.SourceFilename); err != nil {
		slog.WarnContext(ctx, "failed to clear index failure", "filename", rec.SourceFilename, "error", err)
	}
}
