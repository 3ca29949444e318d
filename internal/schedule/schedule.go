// Package schedule re-runs catalog comparisons on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron spec such as "@every 6h" or "0 */4 * * *".
// A tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger
}

// New validates spec.
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{spec: spec, schedule: sched, job: job, logger: logger}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is done, running the job on every tick. When
// immediately is set the job also runs once at start. Run waits for an
// in-flight job before returning.
func (s *Scheduler) Run(ctx context.Context, immediately bool) error {
	logger := cronLogger{s.logger}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	id := c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))

	if immediately {
		s.runOnce(ctx)
	}

	c.Start()
	s.logger.Info("schedule started", "spec", s.spec, "next", c.Entry(id).Next)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("schedule stopped", "spec", s.spec)
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run finished", "duration", time.Since(start))
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
