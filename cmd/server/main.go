package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"
	"tripsynth/internal/api"
	"tripsynth/internal/app"
	"tripsynth/internal/config"
	"tripsynth/internal/platform/obs"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It loads configuration, wires adapters through app.Build and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if envErr != nil {
		logger.Info().Msg("no .env file found (using environment variables)")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build app")
	}
	defer a.Close()

	deps := api.Deps{
		Planner:     a.Planner,
		Store:       a.Store,
		Catalog:     a.Catalog,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	}
	if a.Mailer != nil {
		deps.Mailer = a.Mailer
	}

	// Timeouts are tuned for cold-cache planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
	logger.Info().Msg("server stopped")
}
