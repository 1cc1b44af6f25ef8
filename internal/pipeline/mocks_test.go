package pipeline_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"natjus/internal/textextract"
)

type MockTextExtractor struct{ mock.Mock }

func (m *MockTextExtractor) Extract(ctx context.Context, path string) (textextract.Result, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(textextract.Result), args.Error(1)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(context.Context, string) (textextract.Result, error) {
	panic("malformed cross-reference table")
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (p *recordingPublisher) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, body)
	return p.err
}

type pagedDoc struct{ pages []string }

func (d pagedDoc) NumPage() int                   { return len(d.pages) }
func (d pagedDoc) PageText(n int) (string, error) { return d.pages[n-1], nil }
func (d pagedDoc) Close() error                   { return nil }

type pagedOpener struct{ doc pagedDoc }

func (o pagedOpener) Open(string) (textextract.Document, error) { return o.doc, nil }
