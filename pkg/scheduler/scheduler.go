// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of periodic work, such as an archive snapshot
type Job func(ctx context.Context) error

// Scheduler runs a job on a fixed interval until stopped
type Scheduler struct {
	name     string
	job      Job
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(name string, interval time.Duration, job Job, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		name:     name,
		job:      job,
		interval: interval,
		logger:   logger.With(zap.String("job", name)),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler. The job first runs after one interval.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunNow(ctx)
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			}
		}
	}()
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
}

// RunNow runs the job once on the calling goroutine. Failures are logged, never fatal.
func (s *Scheduler) RunNow(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled job failed", zap.Error(err))
		return
	}
	s.logger.Debug("scheduled job finished", zap.Duration("duration", time.Since(start)))
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.done
}
