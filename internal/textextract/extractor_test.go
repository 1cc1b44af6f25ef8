package textextract_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natjus/internal/extraction"
	"natjus/internal/textextract"
)

type fakeDoc struct {
	pages  []string
	broken map[int]bool
	read   []int
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) PageText(n int) (string, error) {
	d.read = append(d.read, n)
	if d.broken[n] {
		return "", errors.New("bad content stream")
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(string) (textextract.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

func numberedPages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("PAGE-%02d-END", i+1)
	}
	return pages
}

func TestBudget_Pages(t *testing.T) {
	b := textextract.DefaultBudget()

	pages, partial := b.Pages(5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, pages)
	assert.False(t, partial)

	pages, partial = b.Pages(20)
	assert.Len(t, pages, 20)
	assert.False(t, partial)

	pages, partial = b.Pages(21)
	assert.Len(t, pages, 20)
	assert.True(t, partial)
	assert.Equal(t, 1, pages[0])
	assert.Equal(t, 10, pages[9])
	assert.Equal(t, 12, pages[10])
	assert.Equal(t, 21, pages[19])

	pages, partial = b.Pages(0)
	assert.Empty(t, pages)
	assert.False(t, partial)
}

func TestExtract_LongDocumentReadsHeadAndTail(t *testing.T) {
	pages := numberedPages(25)
	pages[24] = "Parecer conclusivo.\nGoiânia, 10 de janeiro de 2025."
	doc := &fakeDoc{pages: pages}
	ex := textextract.NewExtractor(fakeOpener{doc: doc}, textextract.DefaultBudget(), nil)

	res, err := ex.Extract(context.Background(), "long.pdf")
	require.NoError(t, err)

	want := append([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25)
	assert.Equal(t, want, res.PagesRead)
	assert.Equal(t, want, doc.read)
	assert.Equal(t, 25, res.PageCount)
	assert.True(t, res.Partial)
	assert.True(t, doc.closed)
	assert.Contains(t, res.Text, "PAGE-10-END\n")
	assert.NotContains(t, res.Text, "PAGE-11-END")
	assert.NotContains(t, res.Text, "PAGE-15-END")
	assert.Contains(t, res.Text, "PAGE-16-END\n")

	date, ok := extraction.SubmissionDate(extraction.Input{Text: res.Text, Filename: "long.pdf"})
	require.True(t, ok)
	assert.Equal(t, "10 de janeiro de 2025", date)
}

func TestExtract_ShortDocumentReadsEveryPage(t *testing.T) {
	doc := &fakeDoc{pages: numberedPages(3)}
	ex := textextract.NewExtractor(fakeOpener{doc: doc}, textextract.DefaultBudget(), nil)

	res, err := ex.Extract(context.Background(), "short.pdf")
	require.NoError(t, err)
	assert.Equal(t, "PAGE-01-END\nPAGE-02-END\nPAGE-03-END\n", res.Text)
	assert.False(t, res.Partial)
}

func TestExtract_UnreadablePageIsSkipped(t *testing.T) {
	doc := &fakeDoc{pages: numberedPages(4), broken: map[int]bool{2: true}}
	ex := textextract.NewExtractor(fakeOpener{doc: doc}, textextract.DefaultBudget(), nil)

	res, err := ex.Extract(context.Background(), "broken.pdf")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, res.PagesRead)
	assert.Equal(t, []int{2}, res.FailedPages)
	assert.NotContains(t, res.Text, "PAGE-02-END")
}

func TestExtract_BlankPagesAddNothing(t *testing.T) {
	doc := &fakeDoc{pages: []string{"", "   ", "texto"}}
	ex := textextract.NewExtractor(fakeOpener{doc: doc}, textextract.DefaultBudget(), nil)

	res, err := ex.Extract(context.Background(), "blank.pdf")
	require.NoError(t, err)
	assert.Equal(t, "texto\n", res.Text)
	assert.Len(t, res.PagesRead, 3)
}

func TestExtract_OpenFailure(t *testing.T) {
	ex := textextract.NewExtractor(fakeOpener{err: errors.New("not a pdf")}, textextract.DefaultBudget(), nil)

	_, err := ex.Extract(context.Background(), "corrupt.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, textextract.ErrOpen)
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := textextract.NewExtractor(fakeOpener{doc: &fakeDoc{pages: numberedPages(2)}}, textextract.DefaultBudget(), nil)

	_, err := ex.Extract(ctx, "x.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
