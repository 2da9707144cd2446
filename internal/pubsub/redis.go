package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/protocol"
	"github.com/smukkama/weather-monitor/pkg/config"
)

// Connect creates a Redis client and verifies it with PING
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisBridge publishes alert summaries to a Redis channel and subscribes to it
type RedisBridge struct {
	client  *redis.Client
	channel string
}

func NewRedisBridge(client *redis.Client, channel string) *RedisBridge {
	return &RedisBridge{client: client, channel: channel}
}

// Channel returns the broadcast channel name
func (b *RedisBridge) Channel() string {
	return b.channel
}

// Publish sends a raw payload to the broadcast channel
func (b *RedisBridge) Publish(ctx context.Context, payload []byte) error {
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	return nil
}

// PublishAlert publishes the summary of a persisted alert
func (b *RedisBridge) PublishAlert(ctx context.Context, alert *database.Alert) error {
	data, err := protocol.EncodeAlertSummary(protocol.NewAlertSummary(alert))
	if err != nil {
		return fmt.Errorf("failed to encode alert summary: %w", err)
	}
	return b.Publish(ctx, data)
}

// Subscription delivers channel payloads on C until closed
type Subscription struct {
	ps *redis.PubSub
	C  <-chan []byte
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}

// Subscribe starts listening on the broadcast channel. C is closed when the
// subscription is closed or ctx is done.
func (b *RedisBridge) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)

	// Wait for the subscription confirmation so errors surface here
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{ps: ps, C: out}, nil
}
