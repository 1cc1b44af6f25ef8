package indexing_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"natjus/internal/extraction"
	"natjus/internal/indexing"
)

// scriptedWriter answers each PutBatch call with the next scripted reply and
// repeats the last one once the script runs out.
type scriptedWriter struct {
	mu      sync.Mutex
	replies []reply
	calls   [][]indexing.Document
}

type reply struct {
	itemErrs []error
	err      error
	block    bool
}

func (w *scriptedWriter) PutBatch(ctx context.Context, docs []indexing.Document) ([]error, error) {
	w.mu.Lock()
	w.calls = append(w.calls, docs)
	r := reply{}
	if len(w.replies) > 0 {
		r = w.replies[0]
		if len(w.replies) > 1 {
			w.replies = w.replies[1:]
		}
	}
	w.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.itemErrs, r.err
}

func (w *scriptedWriter) filenames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, call := range w.calls {
		for _, d := range call {
			out = append(out, d.SourceFilename)
		}
	}
	return out
}

type MockRecorder struct{ mock.Mock }

func (m *MockRecorder) RecordFailure(ctx context.Context, rec extraction.Record, reason string) error {
	args := m.Called(ctx, rec, reason)
	return args.Error(0)
}

type MockResolvingRecorder struct{ MockRecorder }

func (m *MockResolvingRecorder) ResolveFailure(ctx context.Context, filename string) error {
	args := m.Called(ctx, filename)
	return args.Error(0)
}

type sleepLog struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}
