package database

import (
	"errors"
	"time"
)

// Reading is one weather observation for a city. Rows are never updated.
type Reading struct {
	ID          int64     `json:"id"`
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	AQI         *int      `json:"aqi"`
	Condition   string    `json:"weather_condition"`
	Timestamp   time.Time `json:"timestamp"`
}

// Alert is a persisted threshold breach
type Alert struct {
	ID             int64      `json:"id"`
	AlertType      string     `json:"alert_type"`
	ThresholdValue float64    `json:"threshold_value"`
	ActualValue    float64    `json:"actual_value"`
	City           string     `json:"city"`
	Message        string     `json:"message"`
	IsResolved     bool       `json:"is_resolved"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}

const (
	AlertTypeTemperature = "temperature"
	AlertTypeHumidity    = "humidity"
	AlertTypeAQI         = "aqi"
)

// AlertFilter narrows ListAlerts. Zero values mean no filter, except Since.
type AlertFilter struct {
	City      string
	AlertType string
	Resolved  *bool
	Since     time.Time
	Limit     int
}

// AlertStats summarizes alerts created within a window
type AlertStats struct {
	Total      int            `json:"total_alerts"`
	Resolved   int            `json:"resolved_alerts"`
	Unresolved int            `json:"unresolved_alerts"`
	ByType     map[string]int `json:"by_type"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Phone        *string   `json:"phone"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CustomAlert is a user-owned alert rule. The monitoring cycle does not evaluate these.
type CustomAlert struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	City           string    `json:"city"`
	AlertType      string    `json:"alert_type"`
	ThresholdValue float64   `json:"threshold_value"`
	IsActive       bool      `json:"is_active"`
	EmailEnabled   bool      `json:"email_enabled"`
	SMSEnabled     bool      `json:"sms_enabled"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserCity is a city tracked by a user
type UserCity struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"-"`
	City       string    `json:"city"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// PersistenceError reports a failed store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
