package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/engine/verify"
	"pushhook/internal/pkg/logger"
	"pushhook/internal/platform/config"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/repositories"
	"pushhook/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	logger.Init(cfg.Logging)
	workerLog := logger.Component("worker")
	workerLog.Info().Msg("Starting pushhook background workers")

	db, err := database.Open(cfg.Database)
	if err != nil {
		workerLog.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	subRepo := repositories.NewSubscriptionRepository(db)
	logRepo := repositories.NewWebhookLogRepository(db)

	engine := dispatch.NewEngine(
		dispatch.NewWebPushTransport(cfg.Push),
		dispatch.Policy{Strict: cfg.Push.StrictPruning},
		subRepo,
		dispatch.SendOptions{TTL: cfg.Push.TTL, Urgency: cfg.Push.Urgency},
		nil,
		log.Logger,
	)
	sweeper := verify.NewSweeper(subRepo, engine, log.Logger)

	jobs := []workers.Job{
		{
			Name:     "webhook-log-retention",
			Interval: retentionInterval(cfg.Webhooks),
			Run:      workers.PruneWebhookLogs(logRepo, cfg.Webhooks.LogRetention, workerLog),
		},
		{
			Name:     "subscription-sweep",
			Interval: cfg.Push.SweepInterval,
			Run:      workers.VerifySubscriptions(sweeper, workerLog),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers.Run(ctx, jobs, workerLog)
	workerLog.Info().Msg("Workers stopped")
}

// retentionInterval runs the cleanup hourly while a retention is configured.
func retentionInterval(cfg config.WebhooksConfig) time.Duration {
	if cfg.LogRetention <= 0 {
		return 0
	}
	return time.Hour
}
