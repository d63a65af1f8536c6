// Package scheduler runs a function at a fixed period until cancelled. The
// application root owns one Scheduler for the timer tick, independent of
// whichever command or view is active.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/harrisonrobin/tally/pkg/clock"
	"github.com/harrisonrobin/tally/pkg/logger"
)

// Scheduler calls fn once per interval. Calls never overlap: a slow fn
// delays the next call instead of running concurrently with it.
type Scheduler struct {
	clock    clock.Clock
	interval time.Duration
	fn       func() error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(clk clock.Clock, interval time.Duration, fn func() error) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{clock: clk, interval: interval, fn: fn}
}

// Run blocks, calling fn every interval, until ctx is cancelled. Errors from
// fn are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if err := s.fn(); err != nil {
				logger.Error(err, "tick failed")
			}
		}
	}
}

// Start runs the loop in the background. Calling Start on a running
// Scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels a background loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
