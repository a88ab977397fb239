package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caseflow.dev/caseflowlearn/pkg/apperror"
	"github.com/robfig/cron/v3"
)

const defaultRunTimeout = 5 * time.Minute

type Scheduler struct {
	cron       *cron.Cron
	jobs       []Job
	runTimeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runTimeout: defaultRunTimeout,
	}
}

// Register adds job and schedules it when it has a cron expression.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		slog.Info("job registered for on-demand runs", "job", job.Name())
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name(), err)
	}
	slog.Info("job scheduled", "job", job.Name(), "schedule", schedule)
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		slog.Error("job failed", "job", job.Name(), "error", err, "duration", time.Since(start))
		return
	}
	slog.Info("job completed", "job", job.Name(), "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("job scheduler started", "jobs", len(s.jobs))
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("job scheduler stopped")
	case <-ctx.Done():
		slog.Warn("job scheduler stop timed out")
	}
}

// RunByName runs a registered job immediately, bounded by the same timeout
// as scheduled runs.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
			defer cancel()

			slog.InfoContext(ctx, "job triggered manually", "job", name)
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("job %q is not registered: %w", name, apperror.ErrNotFound)
}

// Names lists registered jobs in registration order.
func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
