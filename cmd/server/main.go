package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veldry/chatvault/internal/api"
	"github.com/veldry/chatvault/internal/config"
	"github.com/veldry/chatvault/internal/jobs"
	"github.com/veldry/chatvault/internal/repository/postgres"
	"github.com/veldry/chatvault/internal/repository/redis"
	"github.com/veldry/chatvault/internal/security"
	"github.com/veldry/chatvault/internal/service"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting chatvault server")

	// Initialize database
	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize the key vault from the master secret
	vault, err := security.NewKeyVault(cfg.Security.MasterSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize key vault")
	}

	// Initialize repositories
	chatRepo := postgres.NewChatRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	guidedRepo := postgres.NewGuidedSessionRepository(db)
	jobStateRepo := postgres.NewJobStateRepository(db)

	// Initialize services
	chatService := service.NewChatService(chatRepo, vault, cfg.Security.KeyCacheTTL, cfg.Security.KeyCacheSize)
	sessionService := service.NewSessionService(sessionRepo, guidedRepo)
	guidedService := service.NewGuidedService(guidedRepo, chatService, cfg.Sessions.GuidedSessionTTL)

	// Redis is optional; without it the sweeper runs unfenced, which is fine
	// for single-instance deployments.
	var lease jobs.Lease
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		lease = redis.NewJobLease(redisClient, uuid.NewString())
	} else {
		log.Warn().Msg("Redis disabled, sweeper runs without a cross-instance lease")
	}

	// Start the sweeper
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	sweeper := jobs.NewSweeper(
		sessionService,
		guidedService,
		jobs.NewStateStore(jobStateRepo),
		jobs.NewLockRegistry(),
		lease,
		cfg.Sessions.IdleTimeout,
		cfg.Sessions.SweepInterval,
	)
	go sweeper.Run(sweepCtx)

	// Initialize router
	router := api.NewRouter(cfg, db, chatService, sessionService, guidedService)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweeper()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
