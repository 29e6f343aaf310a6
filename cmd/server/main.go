package main

import (
	"beerspots-service/internal/adapters/geoip"
	"beerspots-service/internal/adapters/gps"
	"beerspots-service/internal/adapters/store"
	"beerspots-service/internal/adapters/venues"
	"beerspots-service/internal/api"
	"beerspots-service/internal/api/handlers"
	"beerspots-service/internal/config"
	"beerspots-service/internal/platform/db"
	"beerspots-service/internal/platform/obs"
	"beerspots-service/internal/ports"
	"beerspots-service/internal/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (store, IP providers, venues API) behind ports and starts the HTTP server.
func main() {
	cfg, envLoaded := config.Load()

	logger := obs.NewLogger(cfg.LogLevel, cfg.LogPretty)
	if !envLoaded {
		logger.Info().Msg("no .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = obs.WithLogger(ctx, logger)

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open store")
	}
	defer closeStore()

	venueAPI, err := venues.NewBeerSpotsAPI(cfg.VenuesAPIURL, cfg.VenuesAPIToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("venues api")
	}

	feed := gps.NewFeed()
	resolver, err := services.NewLocationResolver(
		kv,
		feed,
		geoip.NewIPWhoIs(cfg.IPWhoIsURL),
		geoip.NewIPAPI(cfg.IPAPIURL),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("location resolver")
	}

	cache, err := services.NewViewportCache(venueAPI)
	if err != nil {
		logger.Fatal().Err(err).Msg("viewport cache")
	}

	initial := resolver.Initialize(ctx)
	logger.Info().
		Str("source", string(initial.Source)).
		Bool("is_default", initial.IsDefault).
		Bool("is_loading", initial.IsLoading).
		Msg("location initialized")

	go func() {
		if err := resolver.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("location sync stopped")
		}
	}()

	router := api.NewRouter(api.Deps{
		Location:    &handlers.LocationHandler{Resolver: resolver, GPS: feed},
		Venues:      &handlers.VenueHandler{Cache: cache},
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	// Write timeout covers a GPS wait plus a slow venues API call.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
}

// openStore builds the key-value store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (ports.KeyValueStore, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil

	case "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("open store: create %q: %w", dir, err)
			}
		}
		conn, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := store.InitSchema(conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return store.NewSqliteStore(conn), func() { conn.Close() }, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("open store: DATABASE_URL is required for the postgres store")
		}
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := store.InitPostgresSchema(conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return store.NewSQLStore(conn), func() { conn.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("open store: ping redis %q: %w", cfg.RedisAddr, err)
		}
		return store.NewRedisStore(client, "beerspots:"), func() { client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("open store: unknown driver %q", cfg.StoreDriver)
}
