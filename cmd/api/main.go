package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oakline/callbridge/internal/api/router"
	"github.com/oakline/callbridge/internal/callrail"
	appconfig "github.com/oakline/callbridge/internal/config"
	"github.com/oakline/callbridge/internal/crm"
	"github.com/oakline/callbridge/internal/importer"
	"github.com/oakline/callbridge/internal/interactions"
	"github.com/oakline/callbridge/internal/matching"
	"github.com/oakline/callbridge/internal/notify"
	observemetrics "github.com/oakline/callbridge/internal/observability/metrics"
	"github.com/oakline/callbridge/internal/pipeline"
	"github.com/oakline/callbridge/internal/realtime"
	"github.com/oakline/callbridge/internal/webhook"
	"github.com/oakline/callbridge/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting callbridge API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"org_id", cfg.OrgID,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Fan-out is best-effort; the webhook path still records without it.
		logger.Warn("redis unreachable at startup", "error", err, "addr", cfg.RedisAddr)
	}

	webhookMetrics := observemetrics.NewWebhookMetrics(nil)

	repo := crm.NewPostgresRepository(pool)
	store := interactions.NewStore(pool)
	recorder := interactions.NewRecorder(store, logger).
		WithMaxAttempts(cfg.RecorderMaxAttempts).
		WithBaseDelay(cfg.RecorderBaseDelay)

	rtLogger := logger.Component("realtime")
	publisher := realtime.NewPublisher(redisClient, cfg.RealtimePrefix, rtLogger)
	hub := realtime.NewHub(redisClient, cfg.RealtimePrefix, rtLogger)

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		emailSender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewService(emailSender, cfg.LeadAlertEmail, logger)

	processor, err := pipeline.NewProcessor(pipeline.Config{
		OrgID:      cfg.OrgID,
		Matcher:    matching.New(repo),
		Leads:      repo,
		Recorder:   recorder,
		Dispatcher: publisher,
		Notifier:   notifier,
		Logger:     logger.Component("pipeline"),
		Metrics:    webhookMetrics,
	})
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	webhooks, err := webhook.NewHandler(webhook.Config{
		Verifier:  callrail.NewVerifier(cfg.CallRailWebhookSecret),
		Processor: processor,
		Logger:    logger.Component("webhook"),
		Metrics:   webhookMetrics,
	})
	if err != nil {
		logger.Error("failed to build webhook handler", "error", err)
		os.Exit(1)
	}

	var adminImport *importer.AdminHandler
	if cfg.CallRailAPIKey != "" && cfg.CallRailAccountID != "" {
		client, err := callrail.New(callrail.Config{
			APIKey:     cfg.CallRailAPIKey,
			AccountID:  cfg.CallRailAccountID,
			BaseURL:    cfg.CallRailBaseURL,
			MaxRetries: cfg.CallRailMaxRetries,
			Backoff:    cfg.CallRailRetryBackoff,
			Logger:     logger.Logger,
		})
		if err != nil {
			logger.Error("failed to build callrail client", "error", err)
			os.Exit(1)
		}
		imp, err := importer.New(importer.Config{
			Client:       client,
			Processor:    processor,
			Runs:         importer.NewPostgresRunStore(pool),
			Logger:       logger.Component("importer"),
			Metrics:      webhookMetrics,
			OrgID:        cfg.OrgID,
			PageSize:     cfg.ImportPageSize,
			PageDelay:    cfg.ImportPageDelay,
			MaxPages:     cfg.ImportMaxPages,
			SkipDispatch: cfg.ImportSkipDispatch,
		})
		if err != nil {
			logger.Error("failed to build importer", "error", err)
			os.Exit(1)
		}
		adminImport = importer.NewAdminHandler(imp, cfg.ImportLookbackDays, logger)
	} else {
		logger.Info("callrail API credentials not set, admin import disabled")
	}

	health := func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Webhooks:           webhooks,
		RealtimeHub:        hub,
		AdminImport:        adminImport,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		HealthCheck:        health,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
