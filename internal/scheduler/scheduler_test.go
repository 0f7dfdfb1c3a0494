package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	s := New(SweepFunc(func(ctx context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	}), time.Second, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(s.Stop)

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Error("expected at least one sweep")
	}
}

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	var running, overlaps, calls atomic.Int32
	release := make(chan struct{})

	s := New(SweepFunc(func(ctx context.Context) (bool, error) {
		calls.Add(1)
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer running.Add(-1)
		<-release
		return true, nil
	}), time.Second, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(3500 * time.Millisecond)
	blocked := calls.Load()
	close(release)
	s.Stop()

	if overlaps.Load() != 0 {
		t.Errorf("expected no overlapping sweeps, got %d", overlaps.Load())
	}
	if blocked != 1 {
		t.Errorf("expected ticks to be skipped while a sweep runs, got %d calls", blocked)
	}
}

func TestRunNow_LogsErrors(t *testing.T) {
	s := New(SweepFunc(func(ctx context.Context) (bool, error) {
		return false, errors.New("backend down")
	}), time.Minute, nil)

	s.RunNow(context.Background())
}

func TestStart_RejectsBadInterval(t *testing.T) {
	s := New(SweepFunc(func(ctx context.Context) (bool, error) { return true, nil }), 0, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestScheduler_RunningSweepOutlivesCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var sweepErr atomic.Value

	s := New(SweepFunc(func(ctx context.Context) (bool, error) {
		select {
		case started <- struct{}{}:
		default:
			return true, nil
		}
		<-release
		if err := ctx.Err(); err != nil {
			sweepErr.Store(err)
		}
		return true, nil
	}), time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a sweep to start")
	}
	cancel()
	close(release)
	s.Stop()

	if err := sweepErr.Load(); err != nil {
		t.Errorf("expected the running sweep to keep a live context, got %v", err)
	}
}
