package textextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrOpen means the document could not be opened at all.
var ErrOpen = errors.New("open document")

// Document is an opened document whose pages are numbered from 1.
type Document interface {
	NumPage() int
	PageText(n int) (string, error)
	Close() error
}

type Opener interface {
	Open(path string) (Document, error)
}

// Budget bounds how many pages of a long document are read.
type Budget struct {
	Threshold int
	Head      int
	Tail      int
}

func DefaultBudget() Budget {
	return Budget{Threshold: 20, Head: 10, Tail: 10}
}

// Pages lists the pages to read for a document of total pages, and whether
// the selection skips any of them.
func (b Budget) Pages(total int) ([]int, bool) {
	if total <= 0 {
		return nil, false
	}
	if b.Threshold <= 0 || total <= b.Threshold {
		return pageRange(1, total), false
	}
	pages := pageRange(1, min(b.Head, total))
	tailStart := max(total-b.Tail+1, len(pages)+1)
	pages = append(pages, pageRange(tailStart, total)...)
	return pages, len(pages) < total
}

func pageRange(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

type Result struct {
	Text        string
	PageCount   int
	PagesRead   []int
	FailedPages []int
	// Partial is set when the page budget skipped part of the document.
	Partial  bool
	Duration time.Duration
}

type Extractor struct {
	Opener Opener
	Budget Budget
	logger *slog.Logger
}

func NewExtractor(opener Opener, budget Budget, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{Opener: opener, Budget: budget, logger: logger}
}

// Extract concatenates the text of the budgeted pages in order. A page that
// cannot be read contributes nothing; only a failure to open is returned.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	doc, err := e.Opener.Open(path)
	if err != nil {
		if !errors.Is(err, ErrOpen) {
			err = fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
		}
		return Result{}, err
	}
	defer doc.Close()

	res := Result{PageCount: doc.NumPage()}
	pages, partial := e.Budget.Pages(res.PageCount)
	res.Partial = partial

	var b strings.Builder
	for _, n := range pages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		text, err := doc.PageText(n)
		if err != nil {
			e.logger.DebugContext(ctx, "page skipped", "path", path, "page", n, "error", err)
			res.FailedPages = append(res.FailedPages, n)
			continue
		}
		res.PagesRead = append(res.PagesRead, n)
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	res.Text = b.String()
	res.Duration = time.Since(start)
	if partial {
		e.logger.DebugContext(ctx, "page budget applied", "path", path, "pages", res.PageCount, "read", len(res.PagesRead))
	}
	return res, nil
}
