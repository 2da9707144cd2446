package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smukkama/weather-monitor/internal/logging"
	"github.com/smukkama/weather-monitor/internal/metrics"
	"github.com/smukkama/weather-monitor/internal/notification"
	"github.com/smukkama/weather-monitor/internal/queue"
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
		logger.Error("notification service terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("notification service stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting notification service",
		"email_recipients", len(cfg.Notify.EmailRecipients),
		"sms_recipients", len(cfg.Notify.SMSRecipients),
	)

	dispatcher := newDispatcher(ctx, cfg, logger)

	consumer := queue.NewAlertConsumer(cfg.Kafka, "notification-group")
	defer consumer.Close()

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

	batcher := notification.NewBatcher(
		consumer,
		dispatcher,
		notification.Recipients{
			Emails: cfg.Notify.EmailRecipients,
			Phones: cfg.Notify.SMSRecipients,
		},
		cfg.Notify.BatchSize,
		cfg.Notify.FlushInterval,
		logger,
	)

	return batcher.Run(ctx)
}

// newDispatcher registers every channel whose credentials are configured.
// Requests for an unregistered channel fail individually.
func newDispatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) *notification.Dispatcher {
	dispatcher := notification.NewDispatcher(logger)

	if email, err := notification.NewEmailNotifier(cfg.SMTP, logger); err != nil {
		logger.Warn("email channel disabled", "error", err)
	} else {
		testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := email.TestConnection(testCtx); err != nil {
			logger.Warn("smtp connection test failed", "error", err)
		}
		cancel()
		dispatcher.Register(notification.ChannelEmail, email)
	}

	if sms, err := notification.NewSMSNotifier(cfg.SMS, nil); err != nil {
		logger.Warn("sms channel disabled", "error", err)
	} else {
		dispatcher.Register(notification.ChannelSMS, sms)
	}

	return dispatcher
}
