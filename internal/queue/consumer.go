package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/weather-monitor/pkg/config"
)

// AlertConsumer reads the alert topic as part of a consumer group. Offsets
// are committed explicitly once a batch has been handled.
type AlertConsumer struct {
	reader *kafka.Reader
}

func NewAlertConsumer(cfg config.KafkaConfig, groupID string) *AlertConsumer {
	return &AlertConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.TopicAlerts,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    1 << 20,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Consume blocks until the next event is available or ctx is done.
func (c *AlertConsumer) Consume(ctx context.Context) (kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to fetch alert event: %w", err)
	}
	return msg, nil
}

func (c *AlertConsumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to commit %d alert events: %w", len(msgs), err)
	}
	return nil
}

func (c *AlertConsumer) Close() error {
	return c.reader.Close()
}
