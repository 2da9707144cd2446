package relay

import (
	"context"
	"log/slog"

	"github.com/smukkama/weather-monitor/internal/metrics"
	"github.com/smukkama/weather-monitor/internal/protocol"
)

// Broadcaster fans a payload out to live clients. *connection.Manager satisfies it.
type Broadcaster interface {
	Broadcast(city string, payload []byte) int
}

// Relay forwards alert summaries from the pub/sub subscription to live clients
type Relay struct {
	clients Broadcaster
	logger  *slog.Logger
}

func New(clients Broadcaster, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{clients: clients, logger: logger}
}

// Run blocks until messages is closed or ctx is done. Payloads are forwarded
// unchanged; ones that are not alert summaries are dropped.
func (r *Relay) Run(ctx context.Context, messages <-chan []byte) {
	r.logger.Info("alert relay started")
	defer r.logger.Info("alert relay stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			r.forward(payload)
		}
	}
}

func (r *Relay) forward(payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("relay panic while forwarding", "panic", rec)
		}
	}()

	summary, err := protocol.DecodeAlertSummary(payload)
	if err != nil {
		r.logger.Warn("dropping malformed alert payload", "error", err)
		return
	}

	delivered := r.clients.Broadcast(summary.City, payload)
	metrics.RelayedMessagesTotal.Inc()
	r.logger.Debug("alert relayed", "alert_id", summary.ID, "city", summary.City, "clients", delivered)
}
