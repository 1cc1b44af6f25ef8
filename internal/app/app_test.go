package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	wstore "natjus/internal/adapter/weaviate"
	"natjus/internal/config"
	"natjus/internal/extraction"
	"natjus/internal/indexing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	out := t.TempDir()
	return &config.Config{
		InputDir:            t.TempDir(),
		OutputDir:           out,
		CheckpointPath:      filepath.Join(out, "checkpoint.json"),
		ResultsJSONPath:     filepath.Join(out, "metadados_extraidos.json"),
		IndexClass:          "NatjusDocument",
		IndexBatchSize:      1,
		IndexBackoff:        time.Millisecond,
		IndexRequestTimeout: time.Second,
		ServerPort:          8081,
	}
}

func mockWeaviate(t *testing.T, count int) *weaviate.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"Aggregate": map[string]interface{}{
					"NatjusDocument": []interface{}{
						map[string]interface{}{"meta": map[string]interface{}{"count": float64(count)}},
					},
				},
			},
		})
	}))
	t.Cleanup(ts.Close)

	client, err := weaviate.NewClient(weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"})
	require.NoError(t, err)
	return client
}

func TestNew_WithoutOptionalServices(t *testing.T) {
	a, err := New(testConfig(t), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, a.Failures)
	assert.Nil(t, a.Sink)
	assert.Nil(t, a.IndexConsumer)

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
	assert.NotContains(t, w.Body.String(), "failed_submissions")
	assert.NotContains(t, w.Body.String(), "indexed_documents")

	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/failures", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Error(t, a.RunConsumer(context.Background()))
}

func TestNew_WithLedgerAndIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	client := mockWeaviate(t, 3)
	cfg := testConfig(t)
	deps := &Dependencies{DB: db, Weaviate: client, IndexStore: wstore.NewStore(client, cfg.IndexClass)}

	a, err := New(cfg, deps, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Failures)
	require.NotNil(t, a.Sink)
	require.NotNil(t, a.IndexConsumer)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM failed_submissions`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			FailedSubmissions *int `json:"failed_submissions"`
			IndexedDocuments  *int `json:"indexed_documents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data.FailedSubmissions)
	require.NotNil(t, body.Data.IndexedDocuments)
	assert.Equal(t, 2, *body.Data.FailedSubmissions)
	assert.Equal(t, 3, *body.Data.IndexedDocuments)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM failed_submissions ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_filename", "payload", "error", "retries", "created_at"}))

	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/failures", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Retry without a producer cannot republish.
	w = httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/failures/123/retry", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type captureWriter struct {
	docs []indexing.Document
}

func (c *captureWriter) PutBatch(_ context.Context, docs []indexing.Document) ([]error, error) {
	c.docs = append(c.docs, docs...)
	return make([]error, len(docs)), nil
}

func TestNewSink_AttachesPDFWhenEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.IndexAttachPDF = true
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDir, "a.pdf"), []byte("%PDF-1.4"), 0o600))

	w := &captureWriter{}
	sink := NewSink(cfg, w, nil)
	require.NoError(t, sink.Submit(context.Background(), extraction.NewRecord("a.pdf")))

	require.Len(t, w.docs, 1)
	assert.Equal(t, "JVBERi0xLjQ=", w.docs[0].Attachment)
}

func TestNewSink_NoAttachmentByDefault(t *testing.T) {
	cfg := testConfig(t)
	w := &captureWriter{}
	sink := NewSink(cfg, w, nil)

	sum := sink.Index(context.Background(), []extraction.Record{extraction.NewRecord("b.pdf"), extraction.NewRecord("a.pdf")})
	assert.Equal(t, 2, sum.Succeeded)
	require.Len(t, w.docs, 2)
	assert.Equal(t, "a.pdf", w.docs[0].SourceFilename)
	assert.Empty(t, w.docs[0].Attachment)
}

func TestNewFailureService_NilWithoutDB(t *testing.T) {
	assert.Nil(t, NewFailureService(nil, nil))
	assert.Nil(t, NewFailureService(&Dependencies{}, nil))
}
