package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"pushhook/internal/api"
	"pushhook/internal/api/handlers"
	"pushhook/internal/api/middleware"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/engine/endpoints"
	"pushhook/internal/engine/subscriptions"
	"pushhook/internal/engine/verify"
	"pushhook/internal/engine/webhooklog"
	"pushhook/internal/pkg/logger"
	"pushhook/internal/platform/auth"
	"pushhook/internal/platform/config"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/metrics"
	"pushhook/internal/platform/migrations"
	"pushhook/internal/platform/repositories"
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
	appLog := logger.Component("server")

	db, err := database.Open(cfg.Database)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrations.SetLogger(log.Logger)
		if err := migrations.Up(db.DB, db.Dialect); err != nil {
			appLog.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	m := metrics.NewDefault()

	// Repositories
	var endpointRepo endpoints.Repository = repositories.NewEndpointRepository(db)
	if cfg.Webhooks.EndpointCacheTTL > 0 {
		endpointRepo = endpoints.NewCache(endpointRepo, cfg.Webhooks.EndpointCacheTTL)
	}
	subRepo := repositories.NewSubscriptionRepository(db)
	logRepo := repositories.NewWebhookLogRepository(db)

	// Engine
	engine := dispatch.NewEngine(
		dispatch.NewWebPushTransport(cfg.Push),
		dispatch.Policy{Strict: cfg.Push.StrictPruning},
		subRepo,
		dispatch.SendOptions{TTL: cfg.Push.TTL, Urgency: cfg.Push.Urgency},
		m,
		log.Logger,
	)
	reconciler := subscriptions.NewReconciler(subRepo, nil, log.Logger)
	sweeper := verify.NewSweeper(subRepo, engine, log.Logger)
	recorder := webhooklog.NewRecorder(logRepo, log.Logger)
	endpointSvc := endpoints.NewService(endpointRepo, cfg.App.BaseURL)

	tokenSvc := auth.NewTokenService(cfg.JWT)

	limiter, closeLimiter := newLimiter(cfg.RateLimit, appLog)
	defer closeLimiter()

	deps := &api.Dependencies{
		WebhookHandler: handlers.NewWebhookHandler(endpointRepo, subRepo, engine, recorder, cfg.Webhooks, m, log.Logger).
			WithRateLimit(limiter, cfg.RateLimit.WebhookPerMinute),
		PushHandler:     handlers.NewPushHandler(reconciler, sweeper, cfg.Push.VAPIDPublicKey, log.Logger),
		EndpointHandler: handlers.NewEndpointHandler(endpointSvc, logRepo, log.Logger),
		HealthHandler:   handlers.NewHealthHandler(db),
		MetricsHandler:  handlers.NewMetricsHandler(m),
		AuthMiddleware:  middleware.NewAuthMiddleware(tokenSvc),
		Limiter:         limiter,
		RateLimit:       cfg.RateLimit,
		Metrics:         m,
	}
	router := api.NewRouter(deps)

	var handler http.Handler = middleware.Logging(log.Logger)(router)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		handler = h.CORS(
			h.AllowedOrigins(cfg.CORS.AllowedOrigins),
			h.AllowedMethods(cfg.CORS.AllowedMethods),
			h.AllowedHeaders(cfg.CORS.AllowedHeaders),
			h.MaxAge(cfg.CORS.MaxAge),
		)(handler)
	}
	handler = h.RecoveryHandler(h.RecoveryLogger(recoveryLogger{appLog}))(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		appLog.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLog.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-serverErrCh:
		appLog.Error().Err(err).Msg("Server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error().Err(err).Msg("HTTP server shutdown error")
	}
}

// newLimiter shares limits across instances through Redis when configured.
func newLimiter(cfg config.RateLimitConfig, appLog zerolog.Logger) (middleware.Limiter, func()) {
	if cfg.RedisURL == "" {
		l := middleware.NewMemoryLimiter()
		return l, l.Close
	}

	client, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Invalid rate_limit.redis_url")
	}
	appLog.Info().Msg("Using Redis rate limiter")
	return middleware.NewRedisLimiter(client, log.Logger), func() { client.Close() }
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
