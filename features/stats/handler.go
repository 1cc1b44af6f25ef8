package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"natjus/internal/extraction"
	"natjus/internal/middleware"
)

type CorpusSource interface {
	Progress() (Progress, error)
	Records() ([]extraction.Record, error)
}

type FailureRepo interface {
	Count(ctx context.Context) (int, error)
}

type IndexStore interface {
	CountDocuments(ctx context.Context) (int, error)
}

type Handler struct {
	corpus      CorpusSource
	failureRepo FailureRepo
	indexStore  IndexStore
}

// NewHandler builds the stats handler. The failure repo and index store are
// optional; their counts are omitted when nil.
func NewHandler(c CorpusSource, f FailureRepo, i IndexStore) *Handler {
	return &Handler{corpus: c, failureRepo: f, indexStore: i}
}

type StatsResponse struct {
	Documents         Progress                   `json:"documents"`
	Records           int                        `json:"records"`
	Coverage          []extraction.FieldCoverage `json:"coverage"`
	FailedSubmissions *int                       `json:"failed_submissions,omitempty"`
	IndexedDocuments  *int                       `json:"indexed_documents,omitempty"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slog.InfoContext(ctx, "getting stats")

	progress, err := h.corpus.Progress()
	if err != nil {
		slog.ErrorContext(ctx, "failed to read progress", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to read progress", http.StatusInternalServerError)
		return
	}

	records, err := h.corpus.Records()
	if err != nil {
		slog.ErrorContext(ctx, "failed to read records", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to read records", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Documents: progress,
		Records:   len(records),
		Coverage:  extraction.Coverage(records),
	}

	if h.failureRepo != nil {
		n, err := h.failureRepo.Count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count failed submissions", "error", err)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count failed submissions", http.StatusInternalServerError)
			return
		}
		resp.FailedSubmissions = &n
	}

	if h.indexStore != nil {
		n, err := h.indexStore.CountDocuments(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count indexed documents", "error", err)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed documents", http.StatusInternalServerError)
			return
		}
		resp.IndexedDocuments = &n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
