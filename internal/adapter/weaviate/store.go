package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"natjus/internal/indexing"
)

// objectNamespace seeds the deterministic object ids, so resubmitting a
// document overwrites its previous version.
var objectNamespace = uuid.MustParse("6f0c7c1e-2b7a-4e8e-9a53-8d1f3c2b9e40")

func ObjectID(filename string) string {
	return uuid.NewSHA1(objectNamespace, []byte(filename)).String()
}

type Store struct {
	client    *weaviate.Client
	className string
}

func NewStore(client *weaviate.Client, className string) *Store {
	return &Store{client: client, className: className}
}

func (s *Store) PutBatch(ctx context.Context, docs []indexing.Document) ([]error, error) {
	objects := make([]*models.Object, 0, len(docs))
	position := make(map[strfmt.UUID]int, len(docs))
	for i, d := range docs {
		id := strfmt.UUID(ObjectID(d.SourceFilename))
		position[id] = i
		objects = append(objects, &models.Object{
			Class:      s.className,
			ID:         id,
			Properties: d.Properties(),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}

	itemErrs := make([]error, len(docs))
	for _, r := range resp {
		i, ok := position[r.ID]
		if !ok || r.Result == nil || r.Result.Errors == nil {
			continue
		}
		var msgs []string
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) > 0 {
			itemErrs[i] = errors.New(strings.Join(msgs, "; "))
		}
	}
	return itemErrs, nil
}

// classify maps client errors onto the sink's transient categories.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) && isMemoryPressure(clientErr.StatusCode, err.Error()) {
		return fmt.Errorf("%w: %v", indexing.ErrResourceExhausted, err)
	}
	return err
}

// isMemoryPressure reports whether Weaviate refused a request because it is
// overloaded. Under memory pressure the batch endpoint answers 500 with
// "not enough memory" rather than 429.
func isMemoryPressure(status int, msg string) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	case http.StatusInternalServerError:
		return strings.Contains(strings.ToLower(msg), "not enough memory")
	}
	return false
}

// CountDocuments returns how many objects the class holds.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	meta := graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := agg[s.className].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	m, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := m["count"].(float64)
	return int(count), nil
}
