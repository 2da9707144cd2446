package protocol

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/smukkama/weather-monitor/internal/database"
)

// AlertEvent is the message format for the alert event topic
type AlertEvent struct {
	AlertID        int64     `json:"alert_id"`
	AlertType      string    `json:"alert_type"`
	City           string    `json:"city"`
	ThresholdValue float64   `json:"threshold_value"`
	ActualValue    float64   `json:"actual_value"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAlertEvent builds the event for a persisted alert
func NewAlertEvent(a *database.Alert) *AlertEvent {
	return &AlertEvent{
		AlertID:        a.ID,
		AlertType:      a.AlertType,
		City:           a.City,
		ThresholdValue: a.ThresholdValue,
		ActualValue:    a.ActualValue,
		Message:        a.Message,
		CreatedAt:      a.CreatedAt,
	}
}

// Key partitions events by city so a city's alerts stay ordered
func (e *AlertEvent) Key() string {
	if e.City != "" {
		return e.City
	}
	return strconv.FormatInt(e.AlertID, 10)
}

// EncodeAlertEvent encodes an AlertEvent to JSON
func EncodeAlertEvent(e *AlertEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeAlertEvent decodes JSON to AlertEvent
func DecodeAlertEvent(data []byte) (*AlertEvent, error) {
	var e AlertEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
