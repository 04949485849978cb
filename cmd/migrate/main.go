package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veldry/chatvault/internal/config"
	"github.com/veldry/chatvault/internal/repository/postgres"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Database).
		Msg("Applying migrations")

	if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
