package pipeline

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type JournalEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	Filename      string        `json:"filename"`
	Status        string        `json:"status"`
	Reason        string        `json:"reason,omitempty"`
	PageCount     int           `json:"page_count"`
	PagesRead     int           `json:"pages_read"`
	Partial       bool          `json:"partial"`
	Duration      time.Duration `json:"duration_ns"`
	LatencyMs     int64         `json:"latency_ms"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// Journal appends one JSON line per processed document.
type Journal struct {
	writer io.Writer
	closer io.Closer
	mu     sync.Mutex
}

func NewJournal(w io.Writer) *Journal {
	return &Journal{writer: w}
}

func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, err
	}
	return &Journal{writer: f, closer: f}, nil
}

func (j *Journal) Log(entry JournalEntry) {
	if j == nil {
		return
	}
	entry.Timestamp = time.Now().UTC()
	entry.LatencyMs = entry.Duration.Milliseconds()

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := json.NewEncoder(j.writer).Encode(entry); err != nil {
		slog.Error("failed to write journal entry", "error", err)
	}
}

func (j *Journal) Close() error {
	if j == nil || j.closer == nil {
		return nil
	}
	return j.closer.Close()
}
