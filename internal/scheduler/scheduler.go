// Package scheduler runs the periodic housekeeping jobs around battles.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/battle"
)

// Scheduler owns the background job runner.
type Scheduler struct {
	inner  gocron.Scheduler
	logger *zap.Logger
}

// New builds the scheduler with the stale-challenge sweeper installed.
// Challenges nobody accepts within the engine's TTL are cancelled so
// their participants can battle again.
func New(engine *battle.Engine, sweepInterval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = inner.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			if n := engine.CancelStale(context.Background()); n > 0 {
				logger.Info("swept stale challenges", zap.Int("cancelled", n))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("register stale-challenge sweeper: %w", err)
	}

	return &Scheduler{inner: inner, logger: logger}, nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.inner.Start()
	s.logger.Info("scheduler started")
}

// Shutdown stops the job runner.
func (s *Scheduler) Shutdown() error {
	return s.inner.Shutdown()
}
