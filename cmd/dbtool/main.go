package main

import (
	"beerspots-service/internal/adapters/store"
	"beerspots-service/internal/config"
	"beerspots-service/internal/platform/db"
	"beerspots-service/internal/platform/obs"
	"strings"
)

// dbtool prepares the Postgres key-value schema used by STORE_DRIVER=postgres.
func main() {
	cfg, envLoaded := config.Load()

	logger := obs.NewLogger(cfg.LogLevel, cfg.LogPretty)
	if !envLoaded {
		logger.Info().Msg("no .env file found (using environment variables)")
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	logger.Info().Msg("initializing database schema...")
	if err := store.InitPostgresSchema(conn); err != nil {
		logger.Fatal().Err(err).Msg("schema initialization failed")
	}
	logger.Info().Msg("schema ready")
}
