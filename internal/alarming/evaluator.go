package alarming

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/pkg/config"
)

// Thresholds are the limits a reading is compared against.
type Thresholds = config.Thresholds

// AlertDraft is an alert produced by evaluation but not yet persisted
type AlertDraft struct {
	AlertType      string
	ThresholdValue float64
	ActualValue    float64
	City           string
	Message        string
}

// ToAlert converts the draft into an unresolved alert row
func (d AlertDraft) ToAlert() *database.Alert {
	return &database.Alert{
		AlertType:      d.AlertType,
		ThresholdValue: d.ThresholdValue,
		ActualValue:    d.ActualValue,
		City:           d.City,
		Message:        d.Message,
	}
}

// Evaluate compares a reading against the thresholds. Drafts are returned in
// temperature, humidity, aqi order. High and low temperature are exclusive.
func Evaluate(r *database.Reading, t Thresholds) []AlertDraft {
	var drafts []AlertDraft

	switch {
	case evaluateCondition(r.Temperature, ">", t.TemperatureHigh):
		drafts = append(drafts, AlertDraft{
			AlertType:      database.AlertTypeTemperature,
			ThresholdValue: t.TemperatureHigh,
			ActualValue:    r.Temperature,
			City:           r.City,
			Message:        fmt.Sprintf("High temperature alert: %s°C in %s", formatValue(r.Temperature), r.City),
		})
	case evaluateCondition(r.Temperature, "<", t.TemperatureLow):
		drafts = append(drafts, AlertDraft{
			AlertType:      database.AlertTypeTemperature,
			ThresholdValue: t.TemperatureLow,
			ActualValue:    r.Temperature,
			City:           r.City,
			Message:        fmt.Sprintf("Low temperature alert: %s°C in %s", formatValue(r.Temperature), r.City),
		})
	}

	if evaluateCondition(r.Humidity, ">", t.HumidityHigh) {
		drafts = append(drafts, AlertDraft{
			AlertType:      database.AlertTypeHumidity,
			ThresholdValue: t.HumidityHigh,
			ActualValue:    r.Humidity,
			City:           r.City,
			Message:        fmt.Sprintf("High humidity alert: %s%% in %s", formatValue(r.Humidity), r.City),
		})
	}

	if r.AQI != nil && evaluateCondition(float64(*r.AQI), ">", t.AQIHigh) {
		drafts = append(drafts, AlertDraft{
			AlertType:      database.AlertTypeAQI,
			ThresholdValue: t.AQIHigh,
			ActualValue:    float64(*r.AQI),
			City:           r.City,
			Message:        fmt.Sprintf("Poor air quality alert: AQI %d in %s", *r.AQI, r.City),
		})
	}

	return drafts
}

func evaluateCondition(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}

// formatValue renders v with the shortest exact representation, keeping a
// trailing ".0" for whole numbers.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}
