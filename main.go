package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/api"
	"github.com/OPGLOL/opgl-raid-tracker/internal/auth"
	"github.com/OPGLOL/opgl-raid-tracker/internal/config"
	"github.com/OPGLOL/opgl-raid-tracker/internal/db"
	"github.com/OPGLOL/opgl-raid-tracker/internal/middleware"
	"github.com/OPGLOL/opgl-raid-tracker/internal/ratelimit"
	"github.com/OPGLOL/opgl-raid-tracker/internal/repository"
	"github.com/OPGLOL/opgl-raid-tracker/internal/storage"
	"github.com/OPGLOL/opgl-raid-tracker/internal/summary"
	"github.com/OPGLOL/opgl-raid-tracker/internal/telemetry"
	"github.com/OPGLOL/opgl-raid-tracker/internal/translation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	log.Info().Msg("Starting OPGL Raid Tracker")

	log.Info().
		Str("address", cfg.Server.Address()).
		Str("environment", cfg.Server.Environment).
		Str("raid_data_dir", cfg.Storage.RaidDataDir).
		Strs("ignored_nicknames", cfg.Storage.IgnoredNicknames).
		Str("language", cfg.Translation.Language).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Configuration loaded")

	// Translation data is optional; without it identifiers are shown raw
	table, err := translation.LoadTable(cfg.Translation.Dir, cfg.Translation.Language)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Translation.Dir).Msg("Translation table not loaded - using identifiers as names")
		table = translation.EmptyTable()
	} else {
		log.Info().Int("entries", table.Len()).Str("language", cfg.Translation.Language).Msg("Translation table loaded")
	}

	achievements, err := translation.LoadAchievements(cfg.Translation.Dir)
	if err != nil {
		log.Warn().Err(err).Msg("Achievement catalog not loaded - using default images")
		achievements = translation.NewAchievementCatalog(nil)
	}

	// Core pipeline: store -> parser -> cache -> service
	raidStore := storage.NewRaidStore(cfg.Storage.RaidDataDir, cfg.Storage.IgnoredNicknames)
	parser := telemetry.NewParser(translation.NewResolver(table), achievements)
	cache := summary.NewCache(raidStore, parser, cfg.Cache.TTL)
	raidService := summary.NewService(raidStore, parser, cache)

	routerConfig := &api.RouterConfig{
		Handler:  api.NewHandler(raidService),
		Throttle: ratelimit.NewTokenBucket(cfg.Ingest.RatePerSecond, cfg.Ingest.Burst),
	}

	// Initialize database connection (optional - ingestion runs without keys if not configured)
	var database *db.Database
	var ingestKeyRepository repository.IngestKeyRepository
	if cfg.Database.Enabled() {
		connectContext, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
		database, err = db.NewPostgresConnection(connectContext, cfg.Database)
		if err == nil {
			err = database.EnsureSchema(connectContext)
		}
		cancelConnect()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}

		log.Info().
			Str("host", cfg.Database.Host).
			Str("port", cfg.Database.Port).
			Str("database", cfg.Database.Name).
			Msg("Database connection established")

		ingestKeyRepository = repository.NewPostgresIngestKeyRepository(database.DB)
		routerConfig.KeyLimiter = ratelimit.NewRateLimiter(ingestKeyRepository)
		log.Info().Msg("Ingest API keys enabled")
	} else {
		log.Warn().Msg("Database not configured - mod endpoints accept requests without API keys")
	}

	if cfg.Admin.Enabled() {
		authService := auth.NewAuthService(cfg.Admin.JWTSecret, cfg.Admin.PasswordHash, cfg.Admin.AccessTokenTTL)
		routerConfig.TokenValidator = authService
		routerConfig.AdminHandler = api.NewAdminHandler(authService, raidService, ingestKeyRepository)
		log.Info().Bool("ingest_keys", ingestKeyRepository != nil).Msg("Admin endpoints enabled")
	} else {
		log.Warn().Msg("Admin not configured - admin endpoints disabled")
	}

	router := api.SetupRouter(routerConfig)

	// Warm the cache so the first reader does not pay for the rebuild
	snapshot := raidService.GetSnapshot()
	log.Info().
		Int("raids", len(snapshot.Records)).
		Int("players", len(snapshot.Players)).
		Int("parse_errors", len(snapshot.ParseErrors)).
		Msg("Initial snapshot built")

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           middleware.CORSMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("address", server.Addr).
			Msg("OPGL Raid Tracker listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	<-shutdownChannel
	log.Info().Msg("Shutting down server...")

	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownContext); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	// Close database connection if established
	if database != nil {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Database close error")
		} else {
			log.Info().Msg("Database connection closed")
		}
	}

	log.Info().Msg("Server stopped")
}

// setupLogger configures the global logger: colorized console output in
// development, JSON in production
func setupLogger(cfg *config.Config) {
	if cfg.Server.IsProduction() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
