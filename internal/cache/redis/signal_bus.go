package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

// busBuffer is the per-subscription queue between the Redis reader and the
// consumer. A consumer that falls this far behind loses messages.
const busBuffer = 256

// SignalBus carries dashboard events (market ticks, opportunities, trades,
// wallet changes) between instances over Redis Pub/Sub.
type SignalBus struct {
	rdb     *redis.Client
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewSignalBus(c *Client, logger *slog.Logger) *SignalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalBus{
		rdb:    c.Underlying(),
		logger: logger.With(slog.String("component", "signal_bus")),
	}
}

func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel, or on every matching channel when channel is
// a glob such as "ch:*". Delivery to a slow consumer is lossy: a full buffer
// drops the message rather than stalling the Redis connection. The returned
// channel closes when ctx ends or the subscription breaks.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan domain.BusMessage, error) {
	pubsub := sb.open(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan domain.BusMessage, busBuffer)
	go sb.pump(ctx, channel, pubsub, out)
	return out, nil
}

func (sb *SignalBus) open(ctx context.Context, channel string) *redis.PubSub {
	if hasPattern(channel) {
		return sb.rdb.PSubscribe(ctx, channel)
	}
	return sb.rdb.Subscribe(ctx, channel)
}

func (sb *SignalBus) pump(ctx context.Context, sub string, pubsub *redis.PubSub, out chan<- domain.BusMessage) {
	defer close(out)
	defer pubsub.Close()

	in := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				sb.logger.Warn("subscription closed", slog.String("channel", sub))
				return
			}
			select {
			case out <- toBusMessage(msg):
			default:
				n := sb.dropped.Add(1)
				sb.logger.Warn("consumer too slow, message dropped",
					slog.String("channel", msg.Channel),
					slog.Int64("dropped_total", n),
				)
			}
		}
	}
}

// Dropped reports how many messages were discarded for slow consumers.
func (sb *SignalBus) Dropped() int64 { return sb.dropped.Load() }

func toBusMessage(msg *redis.Message) domain.BusMessage {
	return domain.BusMessage{Channel: msg.Channel, Payload: []byte(msg.Payload)}
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

var _ domain.SignalBus = (*SignalBus)(nil)
