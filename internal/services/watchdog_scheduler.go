package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Checker is anything that can run one watchdog evaluation.
type Checker interface {
	Check(ctx context.Context) (Report, error)
}

// WatchdogSchedulerConfig holds configuration for the periodic runner
type WatchdogSchedulerConfig struct {
	// Interval is how often to run the check (default: 1h)
	Interval time.Duration

	// RunOnStart runs one check immediately when started (default: true)
	RunOnStart bool
}

// DefaultWatchdogSchedulerConfig returns sensible defaults
func DefaultWatchdogSchedulerConfig() WatchdogSchedulerConfig {
	return WatchdogSchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	}
}

// WatchdogScheduler runs a Checker on a fixed interval.
type WatchdogScheduler struct {
	checker Checker
	config  WatchdogSchedulerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewWatchdogScheduler(checker Checker, config WatchdogSchedulerConfig) *WatchdogScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultWatchdogSchedulerConfig().Interval
	}
	return &WatchdogScheduler{
		checker: checker,
		config:  config,
	}
}

// Start begins the loop. Returns an error if already running.
func (s *WatchdogScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("watchdog scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Watchdog scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for the in-flight check to finish.
func (s *WatchdogScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	// A timed-out Stop leaves the scheduler running with stopCh already
	// closed; later calls only wait on doneCh.
	stopCh, doneCh := s.stopCh, s.doneCh
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Watchdog scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Watchdog scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *WatchdogScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run blocks until ctx is cancelled, checking on every tick.
func (s *WatchdogScheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *WatchdogScheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.runOnce(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *WatchdogScheduler) runOnce(ctx context.Context) {
	report, err := s.checker.Check(ctx)
	if err != nil {
		// Next tick retries.
		slog.ErrorContext(ctx, "Scheduled watchdog check failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Scheduled watchdog check completed",
		"period", report.Period.Key(),
		"total", report.Total.String(),
		"exceeded", report.Exceeded,
		"notified", report.Notified)
}
