package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smukkama/weather-monitor/internal/alarming"
	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/metrics"
)

// Fetcher returns the current reading for a city. *weather.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (*database.Reading, error)
}

// Store persists readings and alerts. *database.DB satisfies it.
type Store interface {
	InsertReading(ctx context.Context, r *database.Reading) error
	InsertAlert(ctx context.Context, a *database.Alert) error
}

// AlertPublisher announces a persisted alert.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *database.Alert) error
}

// Stages a city moves through during a cycle
const (
	StageFetch          = "fetch"
	StagePersistReading = "persist_reading"
	StagePersistAlert   = "persist_alert"
	StagePublish        = "publish"
	StageDone           = "done"
)

// CityResult is the outcome for one city. On failure Stage names the step that failed.
type CityResult struct {
	City    string            `json:"city"`
	Reading *database.Reading `json:"reading,omitempty"`
	Alerts  []*database.Alert `json:"alerts,omitempty"`
	Stage   string            `json:"stage"`
	Err     error             `json:"-"`
}

func (r CityResult) OK() bool {
	return r.Err == nil
}

// CycleReport summarizes one pass over the city list
type CycleReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Results    []CityResult `json:"results"`
}

// Failed returns the results that did not complete.
func (r *CycleReport) Failed() []CityResult {
	var failed []CityResult
	for _, res := range r.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// AlertCount is the number of alerts persisted during the cycle.
func (r *CycleReport) AlertCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Alerts)
	}
	return n
}

// Pipeline runs fetch, persist, evaluate and publish for each monitored city
type Pipeline struct {
	cities     []string
	thresholds alarming.Thresholds
	fetcher    Fetcher
	store      Store
	publishers []AlertPublisher
	logger     *slog.Logger
}

func NewPipeline(cities []string, thresholds alarming.Thresholds, fetcher Fetcher, store Store, logger *slog.Logger, publishers ...AlertPublisher) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cities:     append([]string(nil), cities...),
		thresholds: thresholds,
		fetcher:    fetcher,
		store:      store,
		publishers: publishers,
		logger:     logger,
	}
}

// RunCycle processes every city in order. A failing city never stops the others.
func (p *Pipeline) RunCycle(ctx context.Context) *CycleReport {
	report := &CycleReport{
		StartedAt: time.Now().UTC(),
		Results:   make([]CityResult, 0, len(p.cities)),
	}

	for _, city := range p.cities {
		res := p.processCity(ctx, city)
		if !res.OK() {
			p.logger.Error("city processing failed", "city", city, "stage", res.Stage, "error", res.Err)
		}
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = time.Now().UTC()
	metrics.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	p.logger.Info("monitoring cycle finished",
		"cities", len(p.cities),
		"failed", len(report.Failed()),
		"alerts", report.AlertCount(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report
}

func (p *Pipeline) processCity(ctx context.Context, city string) (res CityResult) {
	res.City = city

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	res.Stage = StageFetch
	reading, err := p.fetcher.Fetch(ctx, city)
	if err != nil {
		metrics.FetchTotal.WithLabelValues(city, "error").Inc()
		res.Err = err
		return res
	}
	metrics.FetchTotal.WithLabelValues(city, "success").Inc()

	res.Stage = StagePersistReading
	if err := p.store.InsertReading(ctx, reading); err != nil {
		res.Err = err
		return res
	}
	res.Reading = reading

	res.Stage = StagePersistAlert
	for _, draft := range alarming.Evaluate(reading, p.thresholds) {
		alert := draft.ToAlert()
		if err := p.store.InsertAlert(ctx, alert); err != nil {
			res.Err = err
			return res
		}
		metrics.AlertsTotal.WithLabelValues(alert.AlertType, city).Inc()
		res.Alerts = append(res.Alerts, alert)
	}

	res.Stage = StagePublish
	for _, alert := range res.Alerts {
		for _, pub := range p.publishers {
			if err := pub.PublishAlert(ctx, alert); err != nil {
				res.Err = fmt.Errorf("failed to publish alert %d: %w", alert.ID, err)
				return res
			}
		}
		p.logger.Info("alert raised", "city", city, "alert_type", alert.AlertType, "alert_id", alert.ID)
	}

	res.Stage = StageDone
	return res
}
