package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/weather-monitor/pkg/config"
)

// EnsureTopic creates the alert topic through the cluster controller. An
// existing topic is not an error.
func EnsureTopic(ctx context.Context, cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	partitions := cfg.NumPartitions
	if partitions < 1 {
		partitions = 1
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker %s: %w", cfg.Brokers[0], err)
	}
	defer conn.Close()

	broker, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to look up controller: %w", err)
	}

	controller, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(broker.Host, strconv.Itoa(broker.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer controller.Close()

	err = controller.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.TopicAlerts,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s: %w", cfg.TopicAlerts, err)
	}
	return nil
}
