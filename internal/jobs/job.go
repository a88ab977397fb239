package jobs

import "context"

// Job is a unit of background work run by the Scheduler.
type Job interface {
	Name() string
	// Schedule is a five-field cron expression; empty means on demand only.
	Schedule() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Schedule() string              { return j.schedule }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// Func adapts a plain function to Job.
func Func(name, schedule string, run func(ctx context.Context) error) Job {
	return funcJob{name: name, schedule: schedule, run: run}
}
