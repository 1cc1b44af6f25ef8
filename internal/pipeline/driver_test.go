package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"natjus/internal/checkpoint"
	"natjus/internal/config"
	"natjus/internal/extraction"
	"natjus/internal/indexing"
	"natjus/internal/middleware"
	"natjus/internal/pipeline"
	"natjus/internal/results"
	"natjus/internal/textextract"
)

const opinionText = `PARECER TÉCNICO Nº 123/2024
Processo nº 5001234-56.2024.8.09.0051
Assunto: Fornecimento de medicamento oncológico
CID-10: C34.1
Conclusão
Diante do exposto, o parecer é favorável ao pedido.
Goiânia, 10 de janeiro de 2025.`

type env struct {
	inputDir string
	outDir   string
	cpPath   string
	paths    results.Paths
}

func newEnv(t *testing.T, files ...string) env {
	t.Helper()
	root := t.TempDir()
	e := env{
		inputDir: filepath.Join(root, "raw"),
		outDir:   filepath.Join(root, "processed"),
	}
	require.NoError(t, os.MkdirAll(e.inputDir, 0o750))
	require.NoError(t, os.MkdirAll(e.outDir, 0o750))
	e.cpPath = filepath.Join(e.outDir, "checkpoint.json")
	e.paths = results.Paths{
		JSON: filepath.Join(e.outDir, "out.json"),
		CSV:  filepath.Join(e.outDir, "out.csv"),
		XLSX: filepath.Join(e.outDir, "out.xlsx"),
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(e.inputDir, f), []byte("%PDF-1.4 "+f), 0o600))
	}
	return e
}

func (e env) driver(t *testing.T, text pipeline.TextExtractor) (*pipeline.Driver, *checkpoint.Store, *results.Store) {
	t.Helper()
	cp, err := checkpoint.Load(e.cpPath)
	require.NoError(t, err)
	res, err := results.Load(e.paths)
	require.NoError(t, err)
	d := pipeline.NewDriver(e.inputDir, text, extraction.NewEngine(), cp, res).
		WithClock(func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) })
	return d, cp, res
}

func okResult() textextract.Result {
	return textextract.Result{Text: opinionText, PageCount: 1, PagesRead: []int{1}}
}

func TestListPDFs_FiltersAndSorts(t *testing.T) {
	e := newEnv(t, "b.pdf", "A.PDF", "c.txt")
	require.NoError(t, os.Mkdir(filepath.Join(e.inputDir, "sub.pdf"), 0o750))

	names, err := pipeline.ListPDFs(e.inputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.PDF", "b.pdf"}, names)
}

func TestRun_ResumesWithoutReprocessing(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf", "c.pdf")
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, mock.Anything).Return(okResult(), nil)

	d, _, _ := e.driver(t, text)
	sum, err := d.Run(context.Background(), pipeline.Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Pending)
	assert.Equal(t, 2, sum.Attempted)
	assert.Equal(t, 2, sum.TotalProcessed)

	d, _, _ = e.driver(t, text)
	sum, err = d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 3, sum.TotalProcessed)

	d, _, res := e.driver(t, text)
	sum, err = d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Attempted)
	assert.Equal(t, 3, res.Len())

	text.AssertNumberOfCalls(t, "Extract", 3)
	text.AssertCalled(t, "Extract", mock.Anything, filepath.Join(e.inputDir, "c.pdf"))
}

func TestRun_RecordFields(t *testing.T) {
	e := newEnv(t, "a.pdf")
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, mock.Anything).Return(textextract.Result{
		Text: opinionText, PageCount: 25, PagesRead: make([]int, 20), Partial: true,
	}, nil)

	d, _, res := e.driver(t, text)
	_, err := d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)

	rec, ok := res.Get("a.pdf")
	require.True(t, ok)
	assert.Equal(t, "5001234-56.2024.8.09.0051", rec.CaseNumber)
	assert.Equal(t, extraction.OutcomeFavorable, rec.Outcome)
	assert.Equal(t, "10 de janeiro de 2025", rec.SubmissionDate)
	assert.True(t, rec.TextPartial)
	assert.Equal(t, 25, rec.PageCount)
	assert.Equal(t, 20, rec.PagesRead)
	assert.Len(t, rec.ContentSHA256, 64)
	assert.Equal(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), rec.ExtractedAt)

	for _, p := range []string{e.paths.JSON, e.paths.CSV, e.paths.XLSX, e.cpPath} {
		assert.FileExists(t, p)
	}
}

func TestRun_FailedDocumentIsNeverRetried(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf")
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, filepath.Join(e.inputDir, "a.pdf")).Return(okResult(), nil)
	text.On("Extract", mock.Anything, filepath.Join(e.inputDir, "b.pdf")).
		Return(textextract.Result{}, fmt.Errorf("%w: not a pdf", textextract.ErrOpen))

	d, cp, res := e.driver(t, text)
	sum, err := d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.True(t, cp.IsFailed("b.pdf"))
	_, found := res.Get("b.pdf")
	assert.False(t, found)

	d, _, res = e.driver(t, text)
	sum, err = d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Attempted)
	assert.Equal(t, 1, sum.TotalFailed)
	assert.Equal(t, 1, res.Len())
	text.AssertNumberOfCalls(t, "Extract", 2)
}

func TestRun_PanicMarksDocumentFailed(t *testing.T) {
	e := newEnv(t, "a.pdf")
	d, cp, _ := e.driver(t, panickingExtractor{})

	sum, err := d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.True(t, cp.IsFailed("a.pdf"))
}

func TestRun_PersistenceFailureIsFatal(t *testing.T) {
	e := newEnv(t, "a.pdf")
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, mock.Anything).Return(okResult(), nil)

	e.cpPath = filepath.Join(e.outDir, "missing", "checkpoint.json")
	d, _, _ := e.driver(t, text)

	_, err := d.Run(context.Background(), pipeline.Options{})
	assert.Error(t, err)
}

func TestRun_FailedResultsWriteLeavesDocumentPending(t *testing.T) {
	e := newEnv(t, "a.pdf")
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, mock.Anything).Return(okResult(), nil)

	good := e.paths
	e.paths.JSON = filepath.Join(e.outDir, "missing", "out.json")
	d, _, _ := e.driver(t, text)
	_, err := d.Run(context.Background(), pipeline.Options{})
	require.Error(t, err)

	cp, err := checkpoint.Load(e.cpPath)
	require.NoError(t, err)
	assert.False(t, cp.Seen("a.pdf"))

	e.paths = good
	d, cp, res := e.driver(t, text)
	sum, err := d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)
	assert.True(t, cp.IsProcessed("a.pdf"))
	_, ok := res.Get("a.pdf")
	assert.True(t, ok)

	reloaded, err := results.Load(good)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
}

func TestRun_MissingInputDirIsFatal(t *testing.T) {
	e := newEnv(t)
	e.inputDir = filepath.Join(e.inputDir, "absent")
	d, _, _ := e.driver(t, new(MockTextExtractor))

	_, err := d.Run(context.Background(), pipeline.Options{})
	assert.Error(t, err)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	e := newEnv(t, "a.pdf")
	text := new(MockTextExtractor)
	d, cp, _ := e.driver(t, text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := d.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, sum.Interrupted)
	assert.Equal(t, 0, sum.Attempted)
	assert.False(t, cp.Seen("a.pdf"))
	text.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRun_CancelledMidDocumentStaysPending(t *testing.T) {
	e := newEnv(t, "a.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(textextract.Result{}, context.Canceled)

	d, cp, _ := e.driver(t, text)
	sum, err := d.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.True(t, sum.Interrupted)
	assert.False(t, cp.Seen("a.pdf"))
}

func TestRun_PublishesAndJournals(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf")
	text := new(MockTextExtractor)
	text.On("Extract", mock.Anything, filepath.Join(e.inputDir, "a.pdf")).Return(okResult(), nil)
	text.On("Extract", mock.Anything, filepath.Join(e.inputDir, "b.pdf")).Return(textextract.Result{}, errors.New("broken"))

	var journal bytes.Buffer
	pub := &recordingPublisher{err: errors.New("nsqd unavailable")}
	d, _, _ := e.driver(t, text)
	d.WithJournal(pipeline.NewJournal(&journal)).WithPublisher(pub)

	ctx := middleware.WithCorrelationID(context.Background(), "run-1")
	sum, err := d.Run(ctx, pipeline.Options{})
	require.NoError(t, err, "publish failures are not fatal")
	assert.Equal(t, 1, sum.Succeeded)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, config.TopicIndexSubmit, pub.topics[0])
	msg, err := indexing.DecodeSubmit(pub.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", msg.Record.SourceFilename)
	assert.Equal(t, "run-1", msg.CorrelationID)

	dec := json.NewDecoder(&journal)
	var entries []pipeline.JournalEntry
	for dec.More() {
		var entry pipeline.JournalEntry
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "processed", entries[0].Status)
	assert.Equal(t, "failed", entries[1].Status)
	assert.Equal(t, "broken", entries[1].Reason)
	assert.Equal(t, "run-1", entries[1].CorrelationID)
}

func TestRun_LongDocumentEndToEnd(t *testing.T) {
	e := newEnv(t, "parecer longo.pdf")
	pages := make([]string, 25)
	for i := range pages {
		pages[i] = fmt.Sprintf("Página %d do parecer.", i+1)
	}
	pages[24] = "Conclusão\nParecer desfavorável.\nGoiânia, 3 de março de 2024."

	ex := textextract.NewExtractor(pagedOpener{doc: pagedDoc{pages: pages}}, textextract.DefaultBudget(), nil)
	d, _, res := e.driver(t, ex)
	_, err := d.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)

	rec, ok := res.Get("parecer longo.pdf")
	require.True(t, ok)
	assert.Equal(t, 20, rec.PagesRead)
	assert.True(t, rec.TextPartial)
	assert.Equal(t, "3 de março de 2024", rec.SubmissionDate)
	assert.Equal(t, extraction.OutcomeUnfavorable, rec.Outcome)
	assert.NotContains(t, rec.FullText, "Página 12 ")
}
