package alarming

import (
	"testing"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/pkg/config"
)

func aqi(v int) *int { return &v }

func TestEvaluate_ParisHeat(t *testing.T) {
	reading := &database.Reading{City: "Paris", Temperature: 50.0, Humidity: 40, AQI: aqi(60)}
	thresholds := Thresholds{TemperatureHigh: 45, TemperatureLow: -10, HumidityHigh: 90, AQIHigh: 150}

	drafts := Evaluate(reading, thresholds)

	if len(drafts) != 1 {
		t.Fatalf("Expected exactly 1 alert, got %d: %+v", len(drafts), drafts)
	}
	d := drafts[0]
	if d.AlertType != database.AlertTypeTemperature || d.ThresholdValue != 45 || d.ActualValue != 50.0 {
		t.Errorf("Unexpected draft: %+v", d)
	}
	if d.Message != "High temperature alert: 50.0°C in Paris" {
		t.Errorf("Unexpected message: %q", d.Message)
	}
}

func TestEvaluate_Temperature(t *testing.T) {
	thresholds := config.DefaultThresholds()

	tests := []struct {
		name      string
		temp      float64
		wantAlert bool
		threshold float64
		message   string
	}{
		{"above high", 46, true, 45, "High temperature alert: 46.0°C in Oslo"},
		{"at high", 45, false, 0, ""},
		{"in range", 20, false, 0, ""},
		{"at low", -10, false, 0, ""},
		{"below low", -12.3, true, -10, "Low temperature alert: -12.3°C in Oslo"},
		{"keeps exact value", 50.25, true, 45, "High temperature alert: 50.25°C in Oslo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts := Evaluate(&database.Reading{City: "Oslo", Temperature: tt.temp, Humidity: 50}, thresholds)

			if !tt.wantAlert {
				if len(drafts) != 0 {
					t.Errorf("Expected no alert, got %+v", drafts)
				}
				return
			}
			if len(drafts) != 1 {
				t.Fatalf("Expected 1 alert, got %d", len(drafts))
			}
			if drafts[0].ThresholdValue != tt.threshold || drafts[0].ActualValue != tt.temp {
				t.Errorf("Unexpected values: %+v", drafts[0])
			}
			if drafts[0].Message != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, drafts[0].Message)
			}
		})
	}
}

func TestEvaluate_HighAndLowAreExclusive(t *testing.T) {
	// Degenerate thresholds where both comparisons hold.
	thresholds := Thresholds{TemperatureHigh: 10, TemperatureLow: 30, HumidityHigh: 100, AQIHigh: 500}

	drafts := Evaluate(&database.Reading{City: "X", Temperature: 20}, thresholds)
	if len(drafts) != 1 || drafts[0].ThresholdValue != 10 {
		t.Errorf("Expected only the high temperature alert, got %+v", drafts)
	}
}

func TestEvaluate_AQIAbsent(t *testing.T) {
	thresholds := Thresholds{TemperatureHigh: 45, TemperatureLow: -10, HumidityHigh: 90, AQIHigh: -1}

	drafts := Evaluate(&database.Reading{City: "Lima", Temperature: 20, Humidity: 50}, thresholds)
	for _, d := range drafts {
		if d.AlertType == database.AlertTypeAQI {
			t.Errorf("AQI alert produced without AQI: %+v", d)
		}
	}
}

func TestEvaluate_AllAlertsInOrder(t *testing.T) {
	reading := &database.Reading{City: "Delhi", Temperature: 47, Humidity: 95, AQI: aqi(180)}

	drafts := Evaluate(reading, config.DefaultThresholds())

	want := []struct {
		alertType string
		message   string
	}{
		{database.AlertTypeTemperature, "High temperature alert: 47.0°C in Delhi"},
		{database.AlertTypeHumidity, "High humidity alert: 95.0% in Delhi"},
		{database.AlertTypeAQI, "Poor air quality alert: AQI 180 in Delhi"},
	}
	if len(drafts) != len(want) {
		t.Fatalf("Expected %d alerts, got %d", len(want), len(drafts))
	}
	for i, w := range want {
		if drafts[i].AlertType != w.alertType || drafts[i].Message != w.message {
			t.Errorf("alert %d: expected %s %q, got %s %q", i, w.alertType, w.message, drafts[i].AlertType, drafts[i].Message)
		}
	}
	if drafts[2].ActualValue != 180 || drafts[2].ThresholdValue != 150 {
		t.Errorf("Unexpected aqi values: %+v", drafts[2])
	}
}

func TestAlertDraft_ToAlert(t *testing.T) {
	d := AlertDraft{AlertType: database.AlertTypeHumidity, ThresholdValue: 90, ActualValue: 95, City: "Lagos", Message: "m"}
	a := d.ToAlert()
	if a.IsResolved || a.ResolvedAt != nil {
		t.Error("New alert must be unresolved")
	}
	if a.City != "Lagos" || a.ActualValue != 95 {
		t.Errorf("Unexpected alert: %+v", a)
	}
}

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{
		50:     "50.0",
		50.25:  "50.25",
		-12.3:  "-12.3",
		95.125: "95.125",
		0:      "0.0",
	}
	for v, want := range tests {
		if got := formatValue(v); got != want {
			t.Errorf("formatValue(%v) = %q, want %q", v, got, want)
		}
	}
}
