package livefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Publishes events on a redis channel. Every instance running [Relay] on the
// same channel forwards them to its own hub.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

var _ Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	ctx, span := tracer.Start(ctx, "RedisPublisher.Publish")
	defer span.End()

	span.SetAttributes(
		attribute.String("channel", p.channel),
		attribute.String("event.type", string(event.Type)),
	)

	data, err := encode(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode event")
		return err
	}

	receivers, err := p.rdb.Publish(ctx, p.channel, data).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish event")
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	span.SetAttributes(attribute.Int64("receivers", receivers))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "published event")
	return nil
}

func relayBackoff() retry.Backoff {
	b := retry.NewFibonacci(100 * time.Millisecond)
	return retry.WithCappedDuration(10*time.Second, b)
}

// Forwards every event published on channel into the local hub until ctx is
// done. Lost subscriptions are re-established with backoff.
func Relay(ctx context.Context, rdb *redis.Client, channel string, hub *Hub) error {
	err := retry.Do(ctx, relayBackoff(), func(ctx context.Context) error {
		err := relayOnce(ctx, rdb, channel, hub)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		hub.log.WarnContext(ctx, "live relay subscription lost", "channel", channel, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

func relayOnce(ctx context.Context, rdb *redis.Client, channel string, hub *Hub) error {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so failures surface here
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	hub.log.InfoContext(ctx, "live relay subscribed", "channel", channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", channel)
			}

			if err := hub.Broadcast([]byte(msg.Payload)); err != nil {
				hub.log.WarnContext(ctx, "dropping relayed live event", "error", err)
			}
		}
	}
}
