package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
	"github.com/ignite/bulletin-sync/internal/service/bulletin"
)

// DefaultSchedulerPollInterval is how often the scheduler checks the clock
const DefaultSchedulerPollInterval = 30 * time.Second

// DispatchRunner runs one dispatch
type DispatchRunner interface {
	Dispatch(ctx context.Context, channels []domain.Channel) (*bulletin.DispatchReport, error)
}

// DispatchScheduler fires one dispatch per day at a fixed local time
type DispatchScheduler struct {
	runner       DispatchRunner
	hour, minute int
	channels     []domain.Channel
	pollInterval time.Duration
	now          func() time.Time

	lastRunDay string

	// Stats
	runs     int64
	failures int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// ParseTimeOfDay parses "HH:MM" in 24h format
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NewDispatchScheduler creates a scheduler that dispatches on channels every
// day at "HH:MM"
func NewDispatchScheduler(runner DispatchRunner, at string, channels []domain.Channel) (*DispatchScheduler, error) {
	hour, minute, err := ParseTimeOfDay(at)
	if err != nil {
		return nil, err
	}
	return &DispatchScheduler{
		runner:       runner,
		hour:         hour,
		minute:       minute,
		channels:     channels,
		pollInterval: DefaultSchedulerPollInterval,
		now:          time.Now,
	}, nil
}

// SetClock replaces the time source
func (s *DispatchScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the polling loop
func (s *DispatchScheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("dispatch scheduler started", "at", fmt.Sprintf("%02d:%02d", s.hour, s.minute), "poll", s.pollInterval.String())

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop halts the loop and waits for a dispatch in flight to finish
func (s *DispatchScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("dispatch scheduler stopped", "runs", atomic.LoadInt64(&s.runs), "failures", atomic.LoadInt64(&s.failures))
}

func (s *DispatchScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.ctx)
		}
	}
}

// Tick dispatches if today's slot has arrived and has not run yet. It
// reports whether a dispatch was started.
func (s *DispatchScheduler) Tick(ctx context.Context) bool {
	now := s.now()
	day := now.Format("2006-01-02")
	slot := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())

	s.mu.Lock()
	due := !now.Before(slot) && s.lastRunDay != day
	if due {
		s.lastRunDay = day
	}
	s.mu.Unlock()
	if !due {
		return false
	}

	atomic.AddInt64(&s.runs, 1)
	// A started dispatch runs to completion; ctx only stops new ticks
	rep, err := s.runner.Dispatch(context.WithoutCancel(ctx), s.channels)
	if err != nil {
		atomic.AddInt64(&s.failures, 1)
		logger.Error("scheduled dispatch failed", "day", day, "error", err)
		return true
	}
	logger.Info("scheduled dispatch finished", "day", day, "run_id", rep.RunID)
	return true
}

// Stats returns the number of dispatches started and failed
func (s *DispatchScheduler) Stats() (runs, failures int64) {
	return atomic.LoadInt64(&s.runs), atomic.LoadInt64(&s.failures)
}
