package queue

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/pkg/config"
)

// Nothing listens on port 1, so these exercise the error paths without a broker.
var deadBroker = config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}, TopicAlerts: "weather.alerts", NumPartitions: 1}

func TestNewAlertProducer_KeysByHash(t *testing.T) {
	p := NewAlertProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, TopicAlerts: "weather.alerts"})
	defer p.Close()

	if p.writer.Topic != "weather.alerts" {
		t.Errorf("Expected topic weather.alerts, got %s", p.writer.Topic)
	}
	if _, ok := p.writer.Balancer.(*kafka.Hash); !ok {
		t.Errorf("Expected hash balancer, got %T", p.writer.Balancer)
	}
	if p.writer.Async {
		t.Error("Producer must be synchronous so publish failures surface")
	}
}

func TestPublishAlert_UnreachableBroker(t *testing.T) {
	p := NewAlertProducer(deadBroker)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	alert := &database.Alert{ID: 7, AlertType: database.AlertTypeAQI, City: "Delhi", Message: "Poor air quality alert: AQI 200 in Delhi"}
	if err := p.PublishAlert(ctx, alert); err == nil {
		t.Error("Expected error publishing to an unreachable broker")
	}
}

func TestAlertConsumer_CommitNothing(t *testing.T) {
	c := NewAlertConsumer(deadBroker, "notification-group")
	defer c.Close()

	if err := c.Commit(context.Background()); err != nil {
		t.Errorf("Expected empty commit to succeed, got %v", err)
	}
}

func TestAlertConsumer_ConsumeHonorsContext(t *testing.T) {
	c := NewAlertConsumer(deadBroker, "notification-group")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := c.Consume(ctx); err == nil {
		t.Error("Expected error once the context expires")
	}
}

func TestEnsureTopic(t *testing.T) {
	if err := EnsureTopic(context.Background(), config.KafkaConfig{TopicAlerts: "weather.alerts"}); err == nil {
		t.Error("Expected error without brokers")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := EnsureTopic(ctx, deadBroker); err == nil {
		t.Error("Expected error for an unreachable broker")
	}
}
