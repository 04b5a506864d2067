package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"notepipe/internal/domain"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Scheduler triggers pipeline runs on a cron schedule and remembers the
// outcome of the most recent one.
type Scheduler struct {
	pipeline PipelineService
	cron     *cron.Cron
	logger   *zap.Logger

	runMu sync.Mutex

	mu      sync.RWMutex
	last    *domain.RunReport
	lastErr error
	started bool
}

// NewScheduler creates a Scheduler. Overlapping cron ticks are skipped.
func NewScheduler(pipeline PipelineService, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		pipeline: pipeline,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Start registers the run under cronExpr and starts the cron loop. Runs use
// ctx, so cancelling it interrupts an active run.
func (s *Scheduler) Start(ctx context.Context, cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.cron.AddFunc(cronExpr, func() {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error("scheduled run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cronExpr, err)
	}

	s.cron.Start()
	s.started = true
	s.logger.Info("scheduler started", zap.String("cron", cronExpr))
	return nil
}

// Stop halts the cron loop and returns a context that is done once any
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

// RunOnce runs the pipeline immediately unless a run is already active.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.RunReport, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	report, err := s.pipeline.Run(ctx)

	s.mu.Lock()
	if report != nil {
		s.last = report
	}
	s.lastErr = err
	s.mu.Unlock()
	return report, err
}

// LastReport returns the report of the most recent run, or nil before the first.
func (s *Scheduler) LastReport() *domain.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// LastError returns the error of the most recent run.
func (s *Scheduler) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
