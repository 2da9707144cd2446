package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/protocol"
	"github.com/smukkama/weather-monitor/pkg/config"
)

// AlertProducer writes alert events to the alert topic, keyed by city so
// events for one city stay ordered on a single partition.
type AlertProducer struct {
	writer *kafka.Writer
}

func NewAlertProducer(cfg config.KafkaConfig) *AlertProducer {
	return &AlertProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.TopicAlerts,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// PublishAlert blocks until the broker acknowledges the event.
func (p *AlertProducer) PublishAlert(ctx context.Context, alert *database.Alert) error {
	event := protocol.NewAlertEvent(alert)
	data, err := protocol.EncodeAlertEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(event.Key()),
		Value:   data,
		Headers: []kafka.Header{{Key: "alert_type", Value: []byte(event.AlertType)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write alert %d to %s: %w", alert.ID, p.writer.Topic, err)
	}
	return nil
}

func (p *AlertProducer) Close() error {
	return p.writer.Close()
}
