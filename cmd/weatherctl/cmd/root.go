// Package cmd contains the weatherctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/logging"
	"github.com/smukkama/weather-monitor/pkg/config"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "weatherctl",
	Short: "Administer the weather monitor",
	Long: `weatherctl runs one-off maintenance tasks against the weather monitor store.

Examples:
  # Apply database migrations
  weatherctl migrate

  # Run a single monitoring cycle for two cities and print the report
  weatherctl cycle --city Paris --city Delhi

  # Mark an alert resolved
  weatherctl resolve 42`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// setup loads configuration, builds the logger and opens the migrated store.
func setup(ctx context.Context) (*config.Config, *slog.Logger, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := logging.New(cfg.LogLevel)

	db, err := database.Connect(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}
