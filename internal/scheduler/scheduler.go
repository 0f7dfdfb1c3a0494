// Package scheduler runs the recurrence and expiration sweep on a fixed
// interval.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the work done on every tick.
type Sweeper interface {
	Sweep(ctx context.Context) (ran bool, err error)
}

// SweepFunc adapts a function to Sweeper.
type SweepFunc func(ctx context.Context) (bool, error)

func (f SweepFunc) Sweep(ctx context.Context) (bool, error) { return f(ctx) }

// Scheduler fires the sweeper every interval. A tick that arrives while the
// previous one is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.SugaredLogger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(sweeper Sweeper, interval time.Duration, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cl := cronLogger{logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Start schedules the sweep and returns. The sweep stops when ctx is done or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval < time.Second {
		return fmt.Errorf("sweep interval must be at least 1s, got %s", s.interval)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc("@every "+s.interval.String(), s.tick); err != nil {
		s.cancel()
		return err
	}
	s.cron.Start()
	s.logger.Infow("sweep scheduled", "interval", s.interval)
	return nil
}

// RunNow performs one sweep immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.run(ctx)
}

func (s *Scheduler) tick() {
	s.run(s.ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// A sweep that has started finishes its writes even if Stop is called.
	start := time.Now()
	ran, err := s.sweeper.Sweep(context.WithoutCancel(ctx))
	switch {
	case err != nil:
		s.logger.Errorw("sweep failed", "error", err)
	case ran:
		s.logger.Debugw("sweep finished", "took", time.Since(start))
	}
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
