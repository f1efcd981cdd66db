package reindex

import (
	"context"
	"time"

	"github.com/leonunix/docsearch/internal/config"
	"github.com/leonunix/docsearch/internal/document"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// RunRecord is the outcome of a single reindex job run.
type RunRecord struct {
	Timestamp        time.Time `json:"@timestamp"`
	Job              string    `json:"job"`
	Source           []string  `json:"source"`
	Dest             string    `json:"dest"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
	DurationSec      float64   `json:"duration_sec"`
	Total            int64     `json:"total"`
	Created          int64     `json:"created"`
	Updated          int64     `json:"updated"`
	VersionConflicts int64     `json:"version_conflicts"`
	Failures         int       `json:"failures"`
	DocsPerSec       float64   `json:"docs_per_sec"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
}

// Recorder persists run records for later analysis.
type Recorder interface {
	Record(ctx context.Context, rec *RunRecord) error
}

func newRecord(job config.JobConfig, startTime time.Time, resp *document.ByQueryResponse, status string, err error) *RunRecord {
	now := time.Now().UTC()
	elapsed := now.Sub(startTime)
	rec := &RunRecord{
		Timestamp:   now,
		Job:         job.Name,
		Source:      job.Source,
		Dest:        job.Dest,
		StartedAt:   startTime.UTC(),
		CompletedAt: now,
		DurationSec: elapsed.Seconds(),
		Status:      status,
	}
	if resp != nil {
		rec.Total = resp.Total
		rec.Created = resp.Created
		rec.Updated = resp.Updated
		rec.VersionConflicts = resp.VersionConflicts
		rec.Failures = len(resp.Failures)
		if elapsed.Seconds() > 0 {
			rec.DocsPerSec = float64(resp.Created+resp.Updated) / elapsed.Seconds()
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}
