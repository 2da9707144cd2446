package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smukkama/weather-monitor/internal/api"
	"github.com/smukkama/weather-monitor/internal/auth"
	"github.com/smukkama/weather-monitor/internal/connection"
	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/logging"
	"github.com/smukkama/weather-monitor/internal/pubsub"
	"github.com/smukkama/weather-monitor/internal/relay"
	"github.com/smukkama/weather-monitor/internal/server"
	"github.com/smukkama/weather-monitor/internal/weather"
	"github.com/smukkama/weather-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api server terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("api server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting api server", "port", cfg.HTTP.Port)

	db, err := database.Connect(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	redisClient, err := pubsub.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	subscription, err := pubsub.NewRedisBridge(redisClient, cfg.Redis.AlertChannel).Subscribe(ctx)
	if err != nil {
		return err
	}
	defer subscription.Close()

	connManager := connection.NewManager(cfg.HTTP.MaxConnections)

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.New(connManager, logger).Run(ctx, subscription.C)
	}()

	handler := api.NewHandler(
		db,
		weather.NewClient(cfg.Weather, nil),
		auth.NewTokenManager(cfg.HTTP.JWTSecret, cfg.HTTP.TokenTTL),
		logger,
	)

	srv := server.NewServer(cfg.HTTP, connManager, handler, logger)
	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	stats := connManager.Stats()
	logger.Info("shutting down", "clients", stats.TotalConnections, "filtered_cities", stats.FilteredCities, "max_idle", stats.MaxIdle)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", "error", err)
	}

	<-relayDone
	return nil
}
