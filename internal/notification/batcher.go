package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/weather-monitor/internal/protocol"
)

// MessageSource is the consuming side of the alert event topic.
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// BatchDispatcher is satisfied by *Dispatcher.
type BatchDispatcher interface {
	DispatchBatch(ctx context.Context, reqs []Request) []Outcome
}

// Recipients are the configured notification targets for every alert.
type Recipients struct {
	Emails []string
	Phones []string
}

// Batcher consumes alert events, groups them by size or flush interval and
// dispatches one notification batch per group
type Batcher struct {
	source        MessageSource
	dispatcher    BatchDispatcher
	recipients    Recipients
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
}

func NewBatcher(source MessageSource, dispatcher BatchDispatcher, recipients Recipients, batchSize int, flushInterval time.Duration, logger *slog.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		source:        source,
		dispatcher:    dispatcher,
		recipients:    recipients,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
	}
}

// Run consumes until ctx is cancelled. The pending batch is flushed before returning.
func (b *Batcher) Run(ctx context.Context) error {
	var batch []kafka.Message
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, b.batchSize)
	go b.consume(ctx, msgChan)

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				b.flush(flushCtx, batch)
				cancel()
			}
			return nil

		case <-ticker.C:
			if len(batch) > 0 {
				b.logger.Debug("flush interval reached", "messages", len(batch))
				b.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)
			if len(batch) >= b.batchSize {
				b.logger.Debug("batch full", "messages", len(batch))
				b.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (b *Batcher) consume(ctx context.Context, out chan<- kafka.Message) {
	for {
		msg, err := b.source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("consumer error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// flush dispatches the batch and commits every message. Failed deliveries are
// logged and not retried.
func (b *Batcher) flush(ctx context.Context, batch []kafka.Message) {
	var reqs []Request
	for _, msg := range batch {
		event, err := protocol.DecodeAlertEvent(msg.Value)
		if err != nil {
			b.logger.Warn("dropping undecodable alert event", "offset", msg.Offset, "error", err)
			continue
		}
		reqs = append(reqs, b.requestsFor(event)...)
	}

	if len(reqs) > 0 {
		b.dispatcher.DispatchBatch(ctx, reqs)
	}

	if err := b.source.Commit(ctx, batch...); err != nil {
		b.logger.Error("failed to commit offsets", "messages", len(batch), "error", err)
	}
}

func (b *Batcher) requestsFor(event *protocol.AlertEvent) []Request {
	subject := fmt.Sprintf("Weather Alert: %s in %s", event.AlertType, event.City)

	reqs := make([]Request, 0, len(b.recipients.Emails)+len(b.recipients.Phones))
	for _, email := range b.recipients.Emails {
		reqs = append(reqs, Request{Channel: ChannelEmail, Recipient: email, Subject: subject, Message: event.Message})
	}
	for _, phone := range b.recipients.Phones {
		reqs = append(reqs, Request{Channel: ChannelSMS, Recipient: phone, Message: event.Message})
	}
	return reqs
}
