package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/sponsorhub/server/internal/api"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/config"
	"github.com/sponsorhub/server/internal/jobs"
	"github.com/sponsorhub/server/internal/storage/postgres"
	redisstore "github.com/sponsorhub/server/internal/storage/redis"
)

var (
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server and begin accepting requests.

The serve process enqueues jobs but never works them; run "server worker" in
its own process for delivery. Without a reachable Redis the refresh credential
store falls back to process memory, which is fine for a single dev instance
but loses sessions on restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging, "serve")
	logger.Info().Msg("starting sponsorhub server")

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.New(poolCtx, cfg.Database.URL)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdminUser(bootCtx, pool, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootCancel()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	var refreshStore auth.RefreshTokenStore
	var redisClient *redisstore.Client
	redisCtx, redisCancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	redisClient, err = redisstore.New(redisCtx, cfg.Redis)
	redisCancel()
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, refresh tokens held in memory")
		refreshStore = auth.NewMemoryRefreshTokenStore()
	} else {
		defer func() { _ = redisClient.Close() }()
		refreshStore = redisstore.NewRefreshTokenStore(redisClient)
	}

	jobClient, err := jobs.NewInsertOnlyClient(pool, slog.New(slog.NewJSONHandler(os.Stdout, nil)), jobs.RetrySettings{
		EmailAttempts:        cfg.Jobs.RetryEmail,
		NotificationAttempts: cfg.Jobs.RetryNotification,
	})
	if err != nil {
		return fmt.Errorf("job client init failed: %w", err)
	}

	handler := api.NewRouter(cfg, logger, api.Dependencies{
		Pool:         pool,
		Repo:         repo,
		JobClient:    jobClient,
		RefreshStore: refreshStore,
		Redis:        redisClient,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// bootstrapAdminUser seeds the first SUPER_ADMIN account when the bootstrap
// env vars are set and no user with that email exists yet.
func bootstrapAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Email == "" || bootstrap.Password == "" {
		return nil
	}

	var existingID string
	err := pool.QueryRow(ctx,
		`SELECT id FROM users WHERE lower(email) = lower($1) LIMIT 1`, bootstrap.Email,
	).Scan(&existingID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(bootstrap.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	tenantID := bootstrap.TenantID
	if tenantID == "" {
		tenantID = "platform"
	}
	_, err = pool.Exec(ctx, `
INSERT INTO users (id, tenant_id, email, password_hash, role)
VALUES (gen_random_uuid()::text, $1, $2, $3, 'SUPER_ADMIN')
`, tenantID, bootstrap.Email, string(hash))
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	if cfg.Environment == "production" {
		logger.Info().Msg("super admin bootstrapped")
	} else {
		logger.Info().Str("email", bootstrap.Email).Msg("super admin bootstrapped")
	}
	return nil
}
