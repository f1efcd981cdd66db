// Package reindex runs configured server-side reindex jobs, one instance at
// a time per job, and records the outcome of every run.
package reindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/leonunix/docsearch/internal/config"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/lock"
	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/operations"
	"github.com/leonunix/docsearch/internal/query"
)

// Runner executes reindex jobs.
type Runner struct {
	tpl      *operations.Template
	lock     lock.Locker // optional; nil runs without coordination
	lockTTL  time.Duration
	recorder Recorder
	metrics  *metrics.Metrics
}

// RunnerOption configures optional Runner behavior.
type RunnerOption func(*Runner)

// WithLock prevents two instances from running the same job at once.
func WithLock(l lock.Locker) RunnerOption {
	return func(r *Runner) { r.lock = l }
}

// WithLockTTL sets the TTL of job locks. Defaults to 2 hours.
func WithLockTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithRecorder persists a RunRecord after every run.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithMetrics reports run outcomes to Prometheus.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a Runner performing reindexes through tpl.
func NewRunner(tpl *operations.Template, opts ...RunnerOption) *Runner {
	r := &Runner{tpl: tpl, lockTTL: 2 * time.Hour}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll runs every job in order. A failed job is logged and does not stop
// the others; the first error is returned.
func (r *Runner) RunAll(ctx context.Context, jobs []config.JobConfig) error {
	var first error
	for _, job := range jobs {
		if err := r.RunJob(ctx, job); err != nil {
			slog.Error("reindex job failed", "job", job.Name, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// RunJob performs one reindex of job. When another instance holds the job
// lock the run is skipped without error.
func (r *Runner) RunJob(ctx context.Context, job config.JobConfig) error {
	key := "reindex-" + job.Name
	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx, key, r.lockTTL)
		if err != nil {
			return fmt.Errorf("acquiring reindex lock for %s: %w", job.Name, err)
		}
		if !acquired {
			slog.Info("skipping job, reindex lock held by another instance", "job", job.Name)
			r.metrics.ObserveReindex(job.Name, StatusSkipped, 0, 0, 0, 0)
			return nil
		}
		defer func() {
			if err := r.lock.Release(context.WithoutCancel(ctx), key); err != nil {
				slog.Warn("failed to release reindex lock", "job", job.Name, "error", err)
			}
		}()
	}

	q, err := BuildRequest(job)
	if err != nil {
		return err
	}

	slog.Info("starting reindex",
		"job", job.Name,
		"source", job.Source,
		"dest", job.Dest,
		"slices", job.Slices,
		"conflicts", job.Conflicts,
	)
	start := time.Now()
	resp, err := r.tpl.Reindex(ctx, q, nil)
	if err == nil && len(resp.Failures) > 0 {
		err = fmt.Errorf("reindex had %d failures, first: %s", len(resp.Failures), resp.Failures[0].Reason)
	}

	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	r.observe(job, resp, status)
	if r.recorder != nil {
		if recErr := r.recorder.Record(ctx, newRecord(job, start, resp, status, err)); recErr != nil {
			slog.Warn("failed to record reindex run", "job", job.Name, "error", recErr)
		}
	}
	if err != nil {
		return fmt.Errorf("reindex job %s: %w", job.Name, err)
	}

	elapsed := time.Since(start)
	slog.Info("reindex completed",
		"job", job.Name,
		"total", resp.Total,
		"created", resp.Created,
		"updated", resp.Updated,
		"version_conflicts", resp.VersionConflicts,
		"elapsed", elapsed.Round(time.Second).String(),
	)
	return nil
}

func (r *Runner) observe(job config.JobConfig, resp *document.ByQueryResponse, status string) {
	if resp == nil {
		r.metrics.ObserveReindex(job.Name, status, 0, 0, 0, 0)
		return
	}
	r.metrics.ObserveReindex(job.Name, status, resp.Created, resp.Updated, resp.VersionConflicts, int64(len(resp.Failures)))
}

// BuildRequest converts job into a reindex request.
func BuildRequest(job config.JobConfig) (*query.Reindex, error) {
	q := &query.Reindex{
		Source:    query.ReindexSource{Indices: job.Source},
		Dest:      query.ReindexDest{Index: job.Dest},
		Conflicts: query.Conflicts(job.Conflicts),
		Slices:    job.Slices,
	}
	if job.Query != "" {
		if !json.Valid([]byte(job.Query)) {
			return nil, fmt.Errorf("reindex job %s: query is not valid JSON", job.Name)
		}
		q.Source.Query = query.NewNativeQuery(json.RawMessage(job.Query))
	}
	if job.RequestsPerSecond > 0 {
		rps := job.RequestsPerSecond
		q.RequestsPerSecond = &rps
	}
	if job.MaxDocs > 0 {
		maxDocs := job.MaxDocs
		q.MaxDocs = &maxDocs
	}
	return q, nil
}
