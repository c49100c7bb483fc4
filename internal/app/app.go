package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"tripsynth/internal/adapters/cache"
	"tripsynth/internal/adapters/repositories"
	"tripsynth/internal/adapters/routing"
	"tripsynth/internal/adapters/tz"
	"tripsynth/internal/adapters/weather"
	"tripsynth/internal/config"
	"tripsynth/internal/platform/db"
	"tripsynth/internal/ports"
	"tripsynth/internal/report"
	"tripsynth/internal/services"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App is the composition root shared by the server and the CLI. It wires concrete
// adapters (SQLite, Postgres, Redis, ORS, Open-Meteo) behind ports.
type App struct {
	Planner *services.Planner
	Store   ports.ItineraryStore
	Catalog *repositories.SqliteCatalog
	// Mailer is nil when SMTP is not configured.
	Mailer *report.Mailer

	closers []func() error
}

// Build opens the catalog database, applies migrations, seeds the catalog when it
// is empty and wires the planner. Close releases every connection it opened.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	local, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	a.closers = append(a.closers, local.Close)

	applied, err := db.Migrate(ctx, local, db.SQLite)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	logger.Info().Int("applied", applied).Str("db", cfg.DBPath).Msg("sqlite schema ready")

	if err := seedIfEmpty(ctx, local, cfg.SeedPath, logger); err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	a.Catalog = repositories.NewSqliteCatalog(local)

	var (
		legCache     ports.LegCache     = cache.NewSqliteLegCache(local)
		geocodeCache ports.GeocodeCache = cache.NewSqliteGeocodeCache(local)
	)
	a.Store = repositories.NewMemoryItineraryRepository(cfg.ItineraryTTL)

	if cfg.DatabaseURL != "" {
		pg, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if _, err := db.Migrate(ctx, pg, db.Postgres); err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		legCache = cache.NewSQLLegCache(pg)
		geocodeCache = cache.NewSQLGeocodeCache(pg)
		a.Store = repositories.NewSQLItineraryRepository(pg, db.Postgres)
		logger.Info().Msg("using postgres for caches and itineraries")
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("build app: parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("build app: ping redis: %w", err)
		}
		legCache = cache.NewRedisLegCache(client, cache.WithTTL(cfg.LegCacheTTL))
		logger.Info().Msg("using redis for the leg cache")
	}

	deps := services.PlannerDeps{
		Lodging:    a.Catalog,
		Activities: a.Catalog,
		Advisories: weather.NewOpenMeteo(cfg.WeatherBaseURL),
		TimeZones:  tz.NewResolver(),
	}
	switch cfg.Router {
	case "ors":
		router, err := routing.NewORSRouter(cfg.ORSAPIKey, cfg.ORSBaseURL, legCache, logger)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		geocoder, err := routing.NewORSGeocoder(cfg.ORSAPIKey, cfg.ORSBaseURL, geocodeCache, logger)
		if err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
		deps.Router = router
		deps.Geocoder = geocoder
	default:
		deps.Router = routing.NewHaversineRouter()
	}
	logger.Info().Str("router", cfg.Router).Msg("routing provider selected")

	if a.Planner, err = services.NewPlanner(deps, cfg.Planner, logger); err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	if cfg.SMTPHost != "" {
		if a.Mailer, err = report.NewMailer(report.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: "TripSynth",
		}); err != nil {
			return nil, fmt.Errorf("build app: %w", err)
		}
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func seedIfEmpty(ctx context.Context, conn *sql.DB, seedPath string, logger zerolog.Logger) error {
	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates;`).Scan(&count); err != nil {
		return fmt.Errorf("count candidates: %w", err)
	}
	if count > 0 || seedPath == "" {
		return nil
	}
	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("seed", seedPath).Msg("catalog is empty and seed file is missing")
		return nil
	}
	n, err := repositories.SeedFromJSON(ctx, conn, seedPath)
	if err != nil {
		return err
	}
	logger.Info().Int("candidates", n).Str("seed", seedPath).Msg("catalog seeded")
	return nil
}
