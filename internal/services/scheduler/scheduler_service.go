// Package scheduler runs enrichment passes on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Task is one pass of work
type Task func(ctx context.Context) error

// ErrAlreadyRunning is returned by RunNow when a pass is in progress
var ErrAlreadyRunning = errors.New("a pass is already running")

// Service triggers a Task on a cron schedule. Passes never overlap: a tick that
// fires while a pass is still running is skipped.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	task    Task
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex // Protects running and entryID
	runMu   sync.Mutex // Held for the duration of a pass
	running bool
	entryID cron.EntryID
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	cronLog := &cronLogger{logger: logger}
	return &Service{
		cron:   cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		logger: logger,
	}
}

// Start registers task under the 5-field cron expression and starts the scheduler
func (s *Service) Start(ctx context.Context, schedule string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.task = task

	id, err := s.cron.AddFunc(schedule, s.runScheduled)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Str("next_run", s.cron.Entry(id).Next.Format(time.RFC3339)).
		Msg("Scheduler started")

	return nil
}

// RunNow executes the task synchronously unless a pass is already running
func (s *Service) RunNow(ctx context.Context, task Task) error {
	if !s.runMu.TryLock() {
		return ErrAlreadyRunning
	}
	defer s.runMu.Unlock()

	return task(ctx)
}

func (s *Service) runScheduled() {
	err := s.RunNow(s.ctx, s.task)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		s.logger.Warn().Msg("Previous pass still running, skipping scheduled pass")
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled pass failed")
	}

	if next := s.NextRun(); !next.IsZero() {
		s.logger.Info().Str("next_run", next.Format(time.RFC3339)).Msg("Next pass scheduled")
	}
}

// NextRun returns the next scheduled time, or zero when not started
func (s *Service) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// IsRunning reports whether the scheduler has been started
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop halts the scheduler and waits for a running pass to finish
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.cancel()

	s.logger.Info().Msg("Scheduler stopped")
}

// cronLogger adapts arbor to cron.Logger
type cronLogger struct {
	logger arbor.ILogger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Str("details", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Str("details", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}
