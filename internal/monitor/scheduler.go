package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smukkama/weather-monitor/internal/metrics"
)

// CycleRunner runs one monitoring cycle. *Pipeline satisfies it.
type CycleRunner interface {
	RunCycle(ctx context.Context) *CycleReport
}

// Scheduler triggers a cycle immediately on start and then every interval.
// A tick that fires while a cycle is still running is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    CycleRunner
	interval  time.Duration
	logger    *slog.Logger

	running atomic.Bool
	last    atomic.Pointer[CycleReport]

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(runner CycleRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(s.tick)
	if err != nil {
		return fmt.Errorf("failed to schedule monitoring job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop stops future ticks and cancels the running cycle's context.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.RunOnce(ctx)
}

// RunOnce runs a cycle unless one is already in progress. The second return
// value is false when the call was skipped.
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleReport, bool) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.CyclesSkipped.Inc()
		s.logger.Warn("previous cycle still running, skipping tick")
		return nil, false
	}
	defer s.running.Store(false)

	report := s.runner.RunCycle(ctx)
	s.last.Store(report)
	return report, true
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastReport returns the most recent completed cycle, or nil.
func (s *Scheduler) LastReport() *CycleReport {
	return s.last.Load()
}
