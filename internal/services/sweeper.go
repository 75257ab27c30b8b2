package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// Sweeper periodically expires in-progress attempts whose deadline has passed,
// for students who never come back to submit.
type Sweeper struct {
	attempts AttemptService
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(attempts AttemptService, interval time.Duration, logger *slog.Logger, now func() time.Time) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		attempts: attempts,
		interval: interval,
		logger:   logger.With("component", "sweeper"),
		now:      now,
	}
}

// Start runs the sweep loop in the background until Stop or ctx is cancelled.
// Calling Start on a running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.logger.Info("Deadline sweeper started", "interval", s.interval)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns how many attempts it closed.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	n, err := s.attempts.ExpireOverdue(ctx, s.now())
	if err != nil && ctx.Err() == nil {
		s.logger.Error("Deadline sweep failed", "expired", n, "error", err)
	}
	return n
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Deadline sweeper stopped")
}
