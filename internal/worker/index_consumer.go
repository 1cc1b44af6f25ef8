package worker

import (
	"context"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"natjus/internal/extraction"
	"natjus/internal/indexing"
	"natjus/internal/middleware"
)

type Submitter interface {
	Submit(ctx context.Context, rec extraction.Record) error
}

// IndexConsumer indexes records published on the index submission topic.
type IndexConsumer struct {
	sink Submitter
}

func NewIndexConsumer(s Submitter) *IndexConsumer {
	return &IndexConsumer{sink: s}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	msg, err := indexing.DecodeSubmit(m.Body)
	if err != nil {
		// Poison pill: never retry a body that cannot be decoded
		slog.Error("poison pill: invalid submit message", "error", err)
		return nil
	}

	ctx := context.Background()
	if msg.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, msg.CorrelationID)
	}

	// The sink already retried and recorded the failure; requeueing would
	// only duplicate the ledger entry.
	if err := h.sink.Submit(ctx, msg.Record); err != nil {
		slog.WarnContext(ctx, "queued submission failed", "filename", msg.Record.SourceFilename, "attempts", m.Attempts, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "document indexed", "filename", msg.Record.SourceFilename)
	return nil
}
