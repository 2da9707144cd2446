package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	SMS      SMSConfig
	Weather  WeatherConfig
	Monitor  MonitorConfig
	Notify   NotifyConfig
	HTTP     HTTPConfig
	LogLevel string
}

type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite only
}

// ConnectionString returns the DSN for the configured driver.
func (d DatabaseConfig) ConnectionString() string {
	if d.Driver == "sqlite" {
		return fmt.Sprintf("%s?_time_format=sqlite", d.Path)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	AlertChannel string
}

type KafkaConfig struct {
	Brokers       []string
	TopicAlerts   string
	NumPartitions int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Thresholds are the global alert limits applied to every reading.
type Thresholds struct {
	TemperatureHigh float64 `yaml:"temperature_high"`
	TemperatureLow  float64 `yaml:"temperature_low"`
	HumidityHigh    float64 `yaml:"humidity_high"`
	AQIHigh         float64 `yaml:"aqi_high"`
}

type MonitorConfig struct {
	Cities     []string
	Interval   time.Duration
	Thresholds Thresholds
}

type NotifyConfig struct {
	EmailRecipients []string
	SMSRecipients   []string
	BatchSize       int
	FlushInterval   time.Duration
}

type HTTPConfig struct {
	Port        int
	JWTSecret   string
	TokenTTL    time.Duration
	MetricsAddr string // standalone metrics listener for worker processes

	MaxConnections  int
	ShutdownTimeout time.Duration
}

// DefaultCities is the monitored city list used when MONITOR_CITIES is unset.
var DefaultCities = []string{
	"New York", "London", "Tokyo", "Sydney", "Mumbai",
	"Berlin", "Paris", "Toronto", "Singapore", "Dubai",
}

// DefaultThresholds returns the stock alert limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureHigh: 45.0,
		TemperatureLow:  -10.0,
		HumidityHigh:    90.0,
		AQIHigh:         150,
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	defaults := DefaultThresholds()

	config := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "weather_user"),
			Password: getEnv("DB_PASSWORD", "weather_pass"),
			DBName:   getEnv("DB_NAME", "weather_monitoring"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "data/weather.db"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			AlertChannel: getEnv("REDIS_ALERT_CHANNEL", "weather_alerts"),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "weather.alerts"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 1),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "weather-monitor@example.com"),
		},
		SMS: SMSConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
			BaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01"),
		},
		Weather: WeatherConfig{
			APIKey:  getEnv("OPENWEATHER_API_KEY", ""),
			BaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			Timeout: getEnvAsDuration("OPENWEATHER_TIMEOUT", 10*time.Second),
		},
		Monitor: MonitorConfig{
			Cities:   getEnvAsList("MONITOR_CITIES", DefaultCities),
			Interval: getEnvAsDuration("MONITOR_INTERVAL", 5*time.Minute),
			Thresholds: Thresholds{
				TemperatureHigh: getEnvAsFloat("TEMP_HIGH_THRESHOLD", defaults.TemperatureHigh),
				TemperatureLow:  getEnvAsFloat("TEMP_LOW_THRESHOLD", defaults.TemperatureLow),
				HumidityHigh:    getEnvAsFloat("HUMIDITY_HIGH_THRESHOLD", defaults.HumidityHigh),
				AQIHigh:         getEnvAsFloat("AQI_HIGH_THRESHOLD", defaults.AQIHigh),
			},
		},
		Notify: NotifyConfig{
			EmailRecipients: getEnvAsList("NOTIFY_EMAILS", nil),
			SMSRecipients:   getEnvAsList("NOTIFY_PHONES", nil),
			BatchSize:       getEnvAsInt("NOTIFY_BATCH_SIZE", 20),
			FlushInterval:   getEnvAsDuration("NOTIFY_FLUSH_INTERVAL", 5*time.Second),
		},
		HTTP: HTTPConfig{
			Port:        getEnvAsInt("HTTP_PORT", 8000),
			JWTSecret:   getEnv("JWT_SECRET", "change-me"),
			TokenTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),
			MetricsAddr: getEnv("METRICS_ADDR", ":9100"),

			MaxConnections:  getEnvAsInt("WS_MAX_CONNECTIONS", 1000),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if path := getEnv("WEATHER_CONFIG_FILE", ""); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// fileOverlay is the optional YAML file shape. Only monitoring settings can be overridden.
type fileOverlay struct {
	Monitor struct {
		Cities     []string    `yaml:"cities"`
		Interval   string      `yaml:"interval"`
		Thresholds *Thresholds `yaml:"thresholds"`
	} `yaml:"monitor"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(overlay.Monitor.Cities) > 0 {
		c.Monitor.Cities = overlay.Monitor.Cities
	}
	if overlay.Monitor.Interval != "" {
		interval, err := time.ParseDuration(overlay.Monitor.Interval)
		if err != nil {
			return fmt.Errorf("invalid monitor.interval: %w", err)
		}
		c.Monitor.Interval = interval
	}
	if overlay.Monitor.Thresholds != nil {
		c.Monitor.Thresholds = *overlay.Monitor.Thresholds
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Monitor.Cities) == 0 {
		return fmt.Errorf("at least one monitored city is required")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	if c.Monitor.Thresholds.TemperatureLow >= c.Monitor.Thresholds.TemperatureHigh {
		return fmt.Errorf("temperature low threshold must be below the high threshold")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
