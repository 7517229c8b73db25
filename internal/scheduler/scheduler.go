package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"gym-bot/pkg/logger"
)

// Scheduler runs jobs on cron specs in one time zone. A job still running
// when its next tick arrives is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	timeout time.Duration
}

func New(loc *time.Location, jobTimeout time.Duration, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  log,
		timeout: jobTimeout,
	}
}

// Add registers fn under spec. fn receives a context bounded by the job
// timeout and the tick time.
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context, now time.Time) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		s.logger.Infow("Job started", "job", name)
		if err := fn(ctx, start); err != nil {
			s.logger.Errorw("Job failed", "job", name, "error", err)
			return
		}
		s.logger.Infow("Job finished", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s at %q: %w", name, spec, err)
	}
	return nil
}

// AddReminders schedules the daily due reminder.
func (s *Scheduler) AddReminders(spec string, r *Reminders, loc *time.Location) error {
	return s.Add(spec, "due-reminders", func(ctx context.Context, now time.Time) error {
		if loc != nil {
			now = now.In(loc)
		}
		res, err := r.Run(ctx, now)
		if err != nil {
			return err
		}
		s.logger.Infow("Due reminders processed", "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
		return nil
	})
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warnw("Scheduler stop timed out")
	}
}

type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
