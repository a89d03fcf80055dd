// Package service holds the dashboard's application services. Each one owns a
// slice of the domain and talks to storage, the cache and the bus only
// through domain interfaces.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// Notifier is the outbound alert channel.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// publish sends v as JSON on channel. Failures are logged and dropped.
func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, v any) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		logger.WarnContext(ctx, "marshal event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// audit writes an audit row. Failures are logged and dropped.
func audit(ctx context.Context, store domain.AuditStore, logger *slog.Logger, event string, detail map[string]any) {
	if store == nil {
		return
	}
	if err := store.Log(ctx, event, detail); err != nil {
		logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// sendNotify sends an alert. Failures are logged and dropped.
func sendNotify(ctx context.Context, n Notifier, logger *slog.Logger, event, title, message string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, event, title, message); err != nil {
		logger.WarnContext(ctx, "notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// event is the envelope published on every bus channel.
type event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
