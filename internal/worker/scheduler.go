package worker

import (
	"context"
	"sync"
	"time"

	"nearnio/internal/config"
	"nearnio/internal/service"

	"github.com/rs/zerolog"
)

// Scheduler drives the three pipeline operations on fixed intervals for
// deployments without an external cron. Each operation runs on its own
// ticker; a failed run is retried with backoff inside its slot and then
// left for the next tick.
type Scheduler struct {
	orchestrator *service.Orchestrator
	cfg          config.SchedulerConfig
	retry        RetryPolicy
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

func NewScheduler(orchestrator *service.Orchestrator, cfg config.SchedulerConfig, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		cfg:          cfg,
		retry: RetryPolicy{
			MaxRetries:   2,
			InitialDelay: 10 * time.Second,
			MaxDelay:     time.Minute,
		},
		logger: logger,
	}
}

// Start launches the tickers and returns immediately. Sync runs once at
// startup so a fresh deployment has a catalog before the first notify tick.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("Scheduler disabled, relying on external triggers")
		return
	}

	s.runWithRetry(ctx, "sync", s.orchestrator.RunSync)

	s.loop(ctx, "sync", s.cfg.SyncInterval, s.orchestrator.RunSync)
	s.loop(ctx, "notify", s.cfg.NotifyInterval, s.orchestrator.RunNotify)
	s.loop(ctx, "remind", s.cfg.RemindInterval, s.orchestrator.RunRemind)
}

// Wait blocks until all loops have observed context cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) service.Result) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Str("operation", name).Msg("Scheduler loop stopping")
				return
			case <-ticker.C:
				s.runWithRetry(ctx, name, run)
			}
		}
	}()
}

func (s *Scheduler) runWithRetry(ctx context.Context, name string, run func(context.Context) service.Result) {
	res := run(ctx)
	for attempt := 1; res.Err != nil && attempt <= s.retry.MaxRetries; attempt++ {
		delay := s.retry.NextDelay(attempt)
		s.logger.Warn().Err(res.Err).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Run failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		res = run(ctx)
	}

	if res.Err != nil {
		s.logger.Error().Err(res.Err).Str("operation", name).Msg("Run failed, waiting for next tick")
	}
}
