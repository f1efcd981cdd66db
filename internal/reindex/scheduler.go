package reindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/leonunix/docsearch/internal/config"
)

// Scheduler runs jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers every job of jobs with runner. A run still in
// progress when its next tick fires makes that tick a no-op.
func NewScheduler(ctx context.Context, runner *Runner, jobs []config.JobConfig) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	for _, job := range jobs {
		_, err := c.AddFunc(job.Schedule, func() {
			slog.Info("scheduled reindex starting", "job", job.Name)
			if err := runner.RunJob(ctx, job); err != nil {
				slog.Error("scheduled reindex failed", "job", job.Name, "error", err)
				return
			}
			slog.Info("scheduled reindex completed", "job", job.Name)
		})
		if err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q for job %s: %w", job.Schedule, job.Name, err)
		}
	}
	return &Scheduler{cron: c}, nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start begins firing jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
