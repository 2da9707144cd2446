package notification

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/smukkama/weather-monitor/internal/metrics"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Request is a single notification to deliver. Subject is used by email only.
type Request struct {
	Channel   string
	Recipient string
	Subject   string
	Message   string
}

// Outcome is the delivery result for the request at the same batch index.
type Outcome struct {
	Request Request
	Err     error
}

func (o Outcome) Success() bool {
	return o.Err == nil
}

// NotificationError reports a failed delivery.
type NotificationError struct {
	Channel   string
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send %s notification to %s: %v", e.Channel, e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Sender delivers requests for one channel.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// Dispatcher routes requests to the sender registered for their channel.
type Dispatcher struct {
	senders map[string]Sender
	logger  *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		senders: make(map[string]Sender),
		logger:  logger,
	}
}

// Register sets the sender for a channel. Not safe to call during DispatchBatch.
func (d *Dispatcher) Register(channel string, s Sender) {
	d.senders[channel] = s
}

// DispatchBatch sends every request concurrently and returns one outcome per
// request in input order. A failed request never cancels the others.
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			outcomes[i] = Outcome{Request: req, Err: d.send(ctx, req)}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		status := "success"
		if !o.Success() {
			status = "error"
			failed++
			d.logger.Warn("notification failed",
				"channel", o.Request.Channel,
				"recipient", o.Request.Recipient,
				"error", o.Err,
			)
		}
		metrics.NotificationsTotal.WithLabelValues(o.Request.Channel, status).Inc()
	}
	d.logger.Info("notification batch dispatched", "total", len(reqs), "failed", failed)

	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
		if err != nil {
			err = &NotificationError{Channel: req.Channel, Recipient: req.Recipient, Err: err}
		}
	}()

	sender, ok := d.senders[req.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %q", req.Channel)
	}
	if req.Recipient == "" {
		return fmt.Errorf("empty recipient")
	}
	return sender.Send(ctx, req)
}
