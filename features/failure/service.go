package failure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"natjus/internal/config"
	"natjus/internal/extraction"
	"natjus/internal/indexing"
	"natjus/internal/middleware"
)

var ErrPublisherUnavailable = errors.New("retry publisher not configured")

const publishTimeout = 5 * time.Second

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	logger  *slog.Logger
	timeout time.Duration
}

func NewService(repo Repository, pub EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pub: pub, logger: logger, timeout: publishTimeout}
}

// RecordFailure stores a rejected record so it can be resubmitted later.
func (s *Service) RecordFailure(ctx context.Context, rec extraction.Record, reason string) error {
	payload, err := indexing.EncodeSubmit(rec, middleware.GetCorrelationID(ctx))
	if err != nil {
		return err
	}
	f := &Failure{SourceFilename: rec.SourceFilename, Payload: payload, Error: reason}
	if err := s.repo.Save(ctx, f); err != nil {
		return fmt.Errorf("save failure: %w", err)
	}
	s.logger.InfoContext(ctx, "index failure recorded", "id", f.ID, "filename", f.SourceFilename)
	return nil
}

func (s *Service) List(ctx context.Context) ([]Failure, error) {
	return s.repo.List(ctx)
}

// Retry republishes the stored submission and counts the attempt. The entry
// stays in the ledger until the document is indexed.
func (s *Service) Retry(ctx context.Context, id string) error {
	if s.pub == nil {
		return ErrPublisherUnavailable
	}

	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.publish(ctx, f.Payload); err != nil {
		return err
	}

	if err := s.repo.IncrementRetries(ctx, id); err != nil {
		return fmt.Errorf("count retry: %w", err)
	}
	s.logger.InfoContext(ctx, "index failure resubmitted", "id", id, "filename", f.SourceFilename, "retries", f.Retries+1)
	return nil
}

// ResolveFailure drops the ledger entry for a document that has been indexed.
func (s *Service) ResolveFailure(ctx context.Context, filename string) error {
	if err := s.repo.DeleteByFilename(ctx, filename); err != nil {
		return fmt.Errorf("resolve failure: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.pub.Publish(config.TopicIndexSubmit, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("publish retry: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish retry: %w", ctx.Err())
	}
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
