package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sponsorhub/server/internal/config"
	"github.com/sponsorhub/server/internal/email"
	"github.com/sponsorhub/server/internal/jobs"
	"github.com/sponsorhub/server/internal/notify"
	redisstore "github.com/sponsorhub/server/internal/storage/redis"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background job workers",
	Long: `Run the durable queue workers for email and notification delivery.

Workers are idempotent: a redelivered job whose effect key is already
reserved is skipped, so retries and crash-redelivery never duplicate a send.
Effect keys live in Redis; without it each worker process falls back to its
own in-memory set, which only dedupes within that process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkers()
	},
}

func runWorkers() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger := config.NewLogger(cfg.Logging, "worker")
	logger.Info().Msg("starting sponsorhub workers")

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.New(poolCtx, cfg.Database.URL)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	var idempotency jobs.IdempotencyStore
	redisCtx, redisCancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	redisClient, err := redisstore.New(redisCtx, cfg.Redis)
	redisCancel()
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, effect keys held in memory")
		idempotency = jobs.NewMemoryIdempotencyStore()
	} else {
		defer func() { _ = redisClient.Close() }()
		idempotency = redisstore.NewIdempotencyStore(redisClient)
	}

	sender := email.NewService(cfg.Email, logger)
	var sink notify.Sink
	if cfg.Notify.Enabled {
		sink = notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger)
	} else {
		sink = notify.NewLogSink(logger)
	}

	workers := jobs.NewWorkers(sender, sink, idempotency, logger)
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	client, err := jobs.NewClient(pool, workers, slogger, jobs.QueueWorkers{
		Email:         cfg.Jobs.WorkersEmail,
		Notifications: cfg.Jobs.WorkersNotify,
	}, jobs.RetrySettings{
		EmailAttempts:        cfg.Jobs.RetryEmail,
		NotificationAttempts: cfg.Jobs.RetryNotification,
	})
	if err != nil {
		return fmt.Errorf("job client init failed: %w", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	if err := client.Start(runCtx); err != nil {
		return fmt.Errorf("workers failed to start: %w", err)
	}
	logger.Info().
		Int("email_workers", cfg.Jobs.WorkersEmail).
		Int("notification_workers", cfg.Jobs.WorkersNotify).
		Msg("workers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down workers")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := client.Stop(stopCtx); err != nil {
		return fmt.Errorf("workers shutdown: %w", err)
	}
	logger.Info().Msg("workers stopped")
	return nil
}
