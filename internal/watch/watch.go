// Package watch re-runs a job on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. Errors are logged and do not stop the schedule.
type Job func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse validates a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 9 * * 1-5".
func Parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler runs a Job at every activation of a schedule until its context ends.
type Scheduler struct {
	schedule cron.Schedule
	loc      *time.Location
	job      Job
	logger   *slog.Logger
	now      func() time.Time
}

func New(spec string, loc *time.Location, job Job, logger *slog.Logger) (*Scheduler, error) {
	sched, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{schedule: sched, loc: loc, job: job, logger: logger, now: time.Now}, nil
}

// Next returns the first activation after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.now().In(s.loc))
}

// Run blocks, running the job at each activation, and returns ctx.Err() once ctx is done.
// Activations are not queued: a job that overruns skips the activations it missed.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.Next()
		wait := time.Until(next)
		s.logger.Info("watch: next run scheduled", "at", next.Format("Mon Jan 2 15:04"), "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		started := time.Now()
		if err := s.job(ctx); err != nil {
			s.logger.Error("watch: run failed", "err", err)
		} else {
			s.logger.Info("watch: run complete", "elapsed", time.Since(started).Round(time.Millisecond))
		}
	}
}
