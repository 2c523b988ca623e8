package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"fundportal/pkg/metrics"
)

// ErrSweepSkipped indicates the sweep did not run because another
// instance holds the sweep lock.
var ErrSweepSkipped = errors.New("sweep skipped: lock held by another instance")

// Sweeper is the escalation engine surface the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// SweepLock guards the sweep across portal instances. Satisfied by
// sweeplock.Lock.
type SweepLock interface {
	TryAcquire(ctx context.Context) bool
	Release(ctx context.Context)
}

// Scheduler runs the escalation sweep on a fixed interval. The first
// sweep fires immediately on Start. A Redis lock keeps concurrent
// portal instances from sweeping at the same time.
type Scheduler struct {
	sweeper  Sweeper
	lock     SweepLock
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func New(sweeper Sweeper, lock SweepLock, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		lock:     lock,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Escalation scheduler started",
		zap.Duration("interval", s.interval),
	)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Escalation scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx, "scheduled")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx, "scheduled")
		}
	}
}

// RunNow performs one sweep outside the schedule, for the manual
// trigger endpoint. Returns ErrSweepSkipped when another instance
// holds the sweep lock.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.sweep(ctx, "manual")
}

func (s *Scheduler) sweep(ctx context.Context, trigger string) error {
	if s.lock != nil {
		if !s.lock.TryAcquire(ctx) {
			s.logger.Debug("Escalation sweep skipped, lock held elsewhere",
				zap.String("trigger", trigger),
			)
			return ErrSweepSkipped
		}
		defer s.lock.Release(ctx)
	}

	start := time.Now()
	err := s.sweeper.Sweep(ctx)
	metrics.ObserveSweep(trigger, time.Since(start))

	if err != nil {
		// Sweep errors are logged, never fatal. The next tick retries.
		s.logger.Error("Escalation sweep failed",
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Escalation sweep completed",
		zap.String("trigger", trigger),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
