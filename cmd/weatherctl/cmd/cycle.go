package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smukkama/weather-monitor/internal/monitor"
	"github.com/smukkama/weather-monitor/internal/pubsub"
	"github.com/smukkama/weather-monitor/internal/queue"
	"github.com/smukkama/weather-monitor/internal/weather"
)

var (
	cycleCities  []string
	cyclePublish bool
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one monitoring cycle and print the report as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, db, err := setup(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		cities := cfg.Monitor.Cities
		if len(cycleCities) > 0 {
			cities = cycleCities
		}

		var publishers []monitor.AlertPublisher
		if cyclePublish {
			redisClient, err := pubsub.Connect(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			producer := queue.NewAlertProducer(cfg.Kafka)
			defer producer.Close()

			publishers = append(publishers, pubsub.NewRedisBridge(redisClient, cfg.Redis.AlertChannel), producer)
		}

		pipeline := monitor.NewPipeline(cities, cfg.Monitor.Thresholds, weather.NewClient(cfg.Weather, nil), db, logger, publishers...)
		report := pipeline.RunCycle(ctx)

		if err := writeReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if failed := len(report.Failed()); failed > 0 {
			return fmt.Errorf("%d of %d cities failed", failed, len(report.Results))
		}
		return nil
	},
}

type cityOutput struct {
	City   string `json:"city"`
	Stage  string `json:"stage"`
	Alerts int    `json:"alerts"`
	Error  string `json:"error,omitempty"`
}

type reportOutput struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Cities     []cityOutput `json:"cities"`
}

func writeReport(w io.Writer, report *monitor.CycleReport) error {
	out := reportOutput{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Cities:     make([]cityOutput, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		co := cityOutput{City: res.City, Stage: res.Stage, Alerts: len(res.Alerts)}
		if res.Err != nil {
			co.Error = res.Err.Error()
		}
		out.Cities = append(out.Cities, co)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	cycleCmd.Flags().StringSliceVar(&cycleCities, "city", nil, "city to process (repeatable, defaults to the configured list)")
	cycleCmd.Flags().BoolVar(&cyclePublish, "publish", false, "publish raised alerts to redis and kafka")
	rootCmd.AddCommand(cycleCmd)
}
