package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/logging"
	"github.com/smukkama/weather-monitor/internal/metrics"
	"github.com/smukkama/weather-monitor/internal/monitor"
	"github.com/smukkama/weather-monitor/internal/pubsub"
	"github.com/smukkama/weather-monitor/internal/queue"
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
		logger.Error("scheduler terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("scheduler stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting monitoring scheduler", "cities", len(cfg.Monitor.Cities), "interval", cfg.Monitor.Interval)

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
	bridge := pubsub.NewRedisBridge(redisClient, cfg.Redis.AlertChannel)
	logger.Info("publishing alert summaries", "channel", bridge.Channel())

	if err := queue.EnsureTopic(ctx, cfg.Kafka); err != nil {
		logger.Warn("could not create alert topic", "topic", cfg.Kafka.TopicAlerts, "error", err)
	}
	producer := queue.NewAlertProducer(cfg.Kafka)
	defer producer.Close()

	pipeline := monitor.NewPipeline(
		cfg.Monitor.Cities,
		cfg.Monitor.Thresholds,
		weather.NewClient(cfg.Weather, nil),
		db,
		logger,
		bridge,
		producer,
	)

	metricsServer := metrics.NewServer(cfg.HTTP.MetricsAddr)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}()

	scheduler := monitor.NewScheduler(pipeline, cfg.Monitor.Interval, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	<-ctx.Done()
	logger.Info("shutting down", "cycle_in_progress", scheduler.Running())
	if last := scheduler.LastReport(); last != nil {
		logger.Info("last completed cycle",
			"finished_at", last.FinishedAt,
			"failed", len(last.Failed()),
			"alerts", last.AlertCount(),
		)
	}
	return nil
}
