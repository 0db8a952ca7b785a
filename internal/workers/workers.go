package workers

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Job is a periodic background task. A zero Interval disables it.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type LogStore interface {
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

type Sweeper interface {
	SweepAll(ctx context.Context) (total, removed int, err error)
}

// PruneWebhookLogs returns a job body that deletes webhook logs received before now-retention.
func PruneWebhookLogs(store LogStore, retention time.Duration, logger zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-retention).Unix()
		n, err := store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "failed to delete old webhook logs")
		}
		logger.Info().Int64("deleted", n).Int64("cutoff", cutoff).Msg("Pruned webhook logs")
		return nil
	}
}

// VerifySubscriptions returns a job body that checks every user's devices and drops the dead ones.
func VerifySubscriptions(sweeper Sweeper, logger zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		total, removed, err := sweeper.SweepAll(ctx)
		logger.Info().Int("total", total).Int("removed", removed).Msg("Verified subscriptions")
		return errors.Wrap(err, "verification sweep")
	}
}

// Run starts every enabled job on its own ticker and blocks until ctx is cancelled and all jobs
// have returned. Each job also runs once at start.
func Run(ctx context.Context, jobs []Job, logger zerolog.Logger) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		if job.Interval <= 0 {
			logger.Info().Str("job", job.Name).Msg("Job disabled")
			continue
		}

		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			runJob(ctx, job, logger.With().Str("job", job.Name).Logger())
		}(job)
	}
	wg.Wait()
}

func runJob(ctx context.Context, job Job, logger zerolog.Logger) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", job.Interval).Msg("Job started")
	for {
		if err := job.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Job failed")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Job stopped")
			return
		case <-ticker.C:
		}
	}
}
