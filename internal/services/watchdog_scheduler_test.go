package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) Check(context.Context) (Report, error) {
	c.calls.Add(1)
	return Report{}, c.err
}

func TestDefaultWatchdogSchedulerConfig(t *testing.T) {
	config := DefaultWatchdogSchedulerConfig()
	if config.Interval != time.Hour {
		t.Errorf("expected Interval 1h, got %v", config.Interval)
	}
	if !config.RunOnStart {
		t.Error("expected RunOnStart to default to true")
	}
}

func TestNewWatchdogScheduler_ZeroIntervalUsesDefault(t *testing.T) {
	s := NewWatchdogScheduler(&countingChecker{}, WatchdogSchedulerConfig{})
	if s.config.Interval != time.Hour {
		t.Fatalf("expected default interval, got %v", s.config.Interval)
	}
}

func TestWatchdogScheduler_RunsOnTicks(t *testing.T) {
	checker := &countingChecker{err: errors.New("keeps failing")}
	s := NewWatchdogScheduler(checker, WatchdogSchedulerConfig{Interval: 10 * time.Millisecond, RunOnStart: true})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for checker.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if checker.calls.Load() < 3 {
		t.Fatalf("expected at least 3 checks, got %d", checker.calls.Load())
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should be stopped")
	}
}

func TestWatchdogScheduler_StartTwice(t *testing.T) {
	s := NewWatchdogScheduler(&countingChecker{}, WatchdogSchedulerConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer s.Stop(context.Background())

	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting an already running scheduler")
	}
}

func TestWatchdogScheduler_StopNotRunning(t *testing.T) {
	s := NewWatchdogScheduler(&countingChecker{}, DefaultWatchdogSchedulerConfig())
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestWatchdogScheduler_RunReturnsOnCancel(t *testing.T) {
	checker := &countingChecker{}
	s := NewWatchdogScheduler(checker, WatchdogSchedulerConfig{Interval: time.Hour, RunOnStart: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for checker.calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if checker.calls.Load() != 1 {
		t.Fatalf("expected exactly one startup check, got %d", checker.calls.Load())
	}
}

type blockingChecker struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingChecker) Check(context.Context) (Report, error) {
	select {
	case c.entered <- struct{}{}:
	default:
	}
	<-c.release
	return Report{}, nil
}

func TestWatchdogScheduler_StopAfterTimeout(t *testing.T) {
	checker := &blockingChecker{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewWatchdogScheduler(checker, WatchdogSchedulerConfig{Interval: time.Hour, RunOnStart: true})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-checker.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("check never started")
	}

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := s.Stop(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("stop %d: expected deadline exceeded, got %v", i, err)
		}
		if !s.IsRunning() {
			t.Fatalf("stop %d: scheduler should still be running", i)
		}
	}

	close(checker.release)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("final stop: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should be stopped")
	}
}
