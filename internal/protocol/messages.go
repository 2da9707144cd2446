package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smukkama/weather-monitor/internal/database"
)

// AlertSummary is the broadcast payload sent over the pub/sub channel and
// forwarded unchanged to WebSocket clients
type AlertSummary struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAlertSummary builds the summary of a persisted alert
func NewAlertSummary(a *database.Alert) *AlertSummary {
	return &AlertSummary{
		ID:        a.ID,
		Type:      a.AlertType,
		Message:   a.Message,
		City:      a.City,
		Timestamp: a.CreatedAt,
	}
}

// EncodeAlertSummary encodes an AlertSummary to JSON
func EncodeAlertSummary(s *AlertSummary) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeAlertSummary decodes JSON to AlertSummary
func DecodeAlertSummary(data []byte) (*AlertSummary, error) {
	var s AlertSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode alert summary: %w", err)
	}
	if s.ID == 0 || s.Type == "" {
		return nil, fmt.Errorf("alert summary missing id or type")
	}
	return &s, nil
}
