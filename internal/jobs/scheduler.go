// Package jobs runs periodic housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/conectseas/directory-auth/internal/auth"
)

const DefaultSchedule = "@every 10m"

const taskTimeout = time.Minute

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	tasks  []Task
	logger *slog.Logger
}

// New registers tasks under spec, a standard five-field cron expression or a
// descriptor such as "@every 10m".
func New(spec string, logger *slog.Logger, tasks ...Task) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "jobs"))
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, tasks: tasks, logger: logger}
	if _, err := c.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("jobs_started", slog.Int("tasks", len(s.tasks)))
}

// Stop prevents new runs and waits for a running one until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs every task in order. A failing task does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, task := range s.tasks {
		taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
		start := time.Now()
		err := task.Run(taskCtx)
		cancel()
		if err != nil {
			s.logger.Error("job_failed", slog.String("job", task.Name), slog.String("error", err.Error()))
			continue
		}
		s.logger.Debug("job_completed", slog.String("job", task.Name), slog.Duration("duration", time.Since(start)))
	}
}

// SessionCleanup deletes expired sessions.
func SessionCleanup(sessions *auth.SessionManager, logger *slog.Logger) Task {
	return Task{Name: "session_cleanup", Run: func(ctx context.Context) error {
		n, err := sessions.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 && logger != nil {
			logger.Info("expired_sessions_removed", slog.Int64("count", n))
		}
		return nil
	}}
}

// ThrottleCleanup forgets stale login throttle records.
func ThrottleCleanup(throttle *auth.Throttle) Task {
	return Task{Name: "throttle_cleanup", Run: func(context.Context) error {
		throttle.Cleanup()
		return nil
	}}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron_"+msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
