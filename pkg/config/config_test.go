package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONITOR_CITIES", "")
	t.Setenv("MONITOR_INTERVAL", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Monitor.Cities) != len(DefaultCities) {
		t.Errorf("Expected %d cities, got %d", len(DefaultCities), len(cfg.Monitor.Cities))
	}
	if cfg.Monitor.Interval != 5*time.Minute {
		t.Errorf("Expected 5m interval, got %v", cfg.Monitor.Interval)
	}
	if cfg.Monitor.Thresholds != DefaultThresholds() {
		t.Errorf("Unexpected thresholds: %+v", cfg.Monitor.Thresholds)
	}
	if cfg.Redis.AlertChannel != "weather_alerts" {
		t.Errorf("Expected weather_alerts channel, got %s", cfg.Redis.AlertChannel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MONITOR_CITIES", " Paris, ,Oslo ")
	t.Setenv("MONITOR_INTERVAL", "90s")
	t.Setenv("TEMP_HIGH_THRESHOLD", "38.5")
	t.Setenv("NOTIFY_EMAILS", "ops@example.com,oncall@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Monitor.Cities) != 2 || cfg.Monitor.Cities[0] != "Paris" || cfg.Monitor.Cities[1] != "Oslo" {
		t.Errorf("Unexpected cities: %q", cfg.Monitor.Cities)
	}
	if cfg.Monitor.Interval != 90*time.Second {
		t.Errorf("Expected 90s, got %v", cfg.Monitor.Interval)
	}
	if cfg.Monitor.Thresholds.TemperatureHigh != 38.5 {
		t.Errorf("Expected 38.5, got %v", cfg.Monitor.Thresholds.TemperatureHigh)
	}
	if len(cfg.Notify.EmailRecipients) != 2 {
		t.Errorf("Expected 2 email recipients, got %d", len(cfg.Notify.EmailRecipients))
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	content := `
monitor:
  cities: [Reykjavik, Cairo]
  interval: 10m
  thresholds:
    temperature_high: 40
    temperature_low: -20
    humidity_high: 85
    aqi_high: 100
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WEATHER_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Monitor.Cities) != 2 || cfg.Monitor.Cities[1] != "Cairo" {
		t.Errorf("Unexpected cities: %q", cfg.Monitor.Cities)
	}
	if cfg.Monitor.Interval != 10*time.Minute {
		t.Errorf("Expected 10m, got %v", cfg.Monitor.Interval)
	}
	want := Thresholds{TemperatureHigh: 40, TemperatureLow: -20, HumidityHigh: 85, AQIHigh: 100}
	if cfg.Monitor.Thresholds != want {
		t.Errorf("Expected %+v, got %+v", want, cfg.Monitor.Thresholds)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Database: DatabaseConfig{Driver: "postgres"},
		Monitor: MonitorConfig{
			Cities:     []string{"Paris"},
			Interval:   time.Minute,
			Thresholds: DefaultThresholds(),
		},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no cities", func(c *Config) { c.Monitor.Cities = nil }, true},
		{"zero interval", func(c *Config) { c.Monitor.Interval = 0 }, true},
		{"inverted temperature", func(c *Config) { c.Monitor.Thresholds.TemperatureLow = 50 }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"sqlite", func(c *Config) { c.Database.Driver = "sqlite" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Monitor.Cities = append([]string(nil), base.Monitor.Cities...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "w", SSLMode: "disable"}
	if got := pg.ConnectionString(); got != "host=db port=5432 user=u password=p dbname=w sslmode=disable" {
		t.Errorf("Unexpected postgres DSN: %s", got)
	}

	lite := DatabaseConfig{Driver: "sqlite", Path: ":memory:"}
	if got := lite.ConnectionString(); got != ":memory:?_time_format=sqlite" {
		t.Errorf("Unexpected sqlite DSN: %s", got)
	}
}
