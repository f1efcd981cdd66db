package reindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/operations"
	"github.com/leonunix/docsearch/internal/query"
)

var runIndexSpec = query.IndexSpec{
	Settings: json.RawMessage(`{"number_of_shards":1,"number_of_replicas":1}`),
	Mappings: json.RawMessage(`{
  "properties": {
    "@timestamp":        { "type": "date" },
    "job":               { "type": "keyword" },
    "source":            { "type": "keyword" },
    "dest":              { "type": "keyword" },
    "started_at":        { "type": "date" },
    "completed_at":      { "type": "date" },
    "duration_sec":      { "type": "float" },
    "total":             { "type": "long" },
    "created":           { "type": "long" },
    "updated":           { "type": "long" },
    "version_conflicts": { "type": "long" },
    "failures":          { "type": "integer" },
    "docs_per_sec":      { "type": "float" },
    "status":            { "type": "keyword" },
    "error":             { "type": "text" }
  }
}`),
}

// IndexRecorder stores run records as documents of one index.
type IndexRecorder struct {
	tpl   *operations.Template
	index query.IndexCoordinates
}

// NewIndexRecorder returns a recorder writing into index.
func NewIndexRecorder(tpl *operations.Template, index string) *IndexRecorder {
	return &IndexRecorder{tpl: tpl, index: query.IndexCoordinatesOf(index)}
}

// Record writes rec. The index is created with its mappings when missing.
func (s *IndexRecorder) Record(ctx context.Context, rec *RunRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}
	// A deterministic id makes retries idempotent.
	q := &query.IndexQuery{ID: recordID(rec), Source: body}

	_, err = s.tpl.Index(ctx, q, s.index, query.WriteOptions{})
	if errors.Is(err, apierror.ErrIndexNotFound) {
		if createErr := s.ensureIndex(ctx); createErr != nil {
			return fmt.Errorf("creating run index: %w", createErr)
		}
		_, err = s.tpl.Index(ctx, q, s.index, query.WriteOptions{})
	}
	if err != nil {
		return fmt.Errorf("recording run %s: %w", q.ID, err)
	}
	return nil
}

func recordID(rec *RunRecord) string {
	return fmt.Sprintf("run-%s-%d", rec.Job, rec.StartedAt.Unix())
}

func (s *IndexRecorder) ensureIndex(ctx context.Context) error {
	_, err := s.tpl.CreateIndex(ctx, s.index, runIndexSpec, nil)
	var se *apierror.StatusError
	if errors.As(err, &se) && se.Type == "resource_already_exists_exception" {
		return nil
	}
	return err
}

var _ Recorder = (*IndexRecorder)(nil)
