package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Redis list backed queuer.
//
// Messages are moved atomically from `key` onto `key:processing` while they are
// handled. Handled and poisoned messages are removed from the processing list,
// poisoned ones are parked on `key:dead`. Failed messages go to the back of the
// queue and Dequeue returns an error wrapping [ErrRequeued]. Messages left on
// the processing list by a crashed consumer are put back by [RedisQueuer.Recover].
type RedisQueuer struct {
	rdb *redis.Client
	key string
	// Upper bound on a single blocking pop, ctx is checked in between
	BlockTimeout time.Duration
}

var _ Queuer = (*RedisQueuer)(nil)

func NewRedisQueuer(rdb *redis.Client, key string) *RedisQueuer {
	return &RedisQueuer{rdb: rdb, key: key, BlockTimeout: 5 * time.Second}
}

func (q *RedisQueuer) ProcessingKey() string {
	return q.key + ":processing"
}

func (q *RedisQueuer) DeadLetterKey() string {
	return q.key + ":dead"
}

func (q *RedisQueuer) Enqueue(ctx context.Context, message any) error {
	ctx, span := tracer.Start(ctx, "Redis.Enqueue", trace.WithAttributes(
		attribute.String("key", q.key),
	))
	defer span.End()

	msgJSON, err := json.Marshal(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal message")
		return err
	}

	span.AddEvent("serialized_message", trace.WithAttributes(
		attribute.String("message", string(msgJSON)),
	))

	if err = q.rdb.LPush(ctx, q.key, msgJSON).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued message")
	return nil
}

func (q *RedisQueuer) Dequeue(
	ctx context.Context,
	timeout time.Duration,
	handler MessageHandler,
) error {
	ctx, span := tracer.Start(ctx, "Redis.Dequeue", trace.WithAttributes(
		attribute.String("key", q.key),
		attribute.Int64("timeoutSecs", int64(timeout.Seconds())),
	))
	defer span.End()

	var msg string
	for {
		var err error
		msg, err = q.rdb.BLMove(ctx, q.key, q.ProcessingKey(), "RIGHT", "LEFT", q.BlockTimeout).Result()
		if err == nil {
			break
		}
		if !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to dequeue message")
			return err
		}

		if ctx.Err() != nil {
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "context cancelled")
			return ctx.Err()
		}
	}

	span.AddEvent("got_message", trace.WithAttributes(
		attribute.String("message", msg),
	))

	handlerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// settle even if ctx is cancelled while handling so the message is not stranded
	settleCtx := context.WithoutCancel(ctx)

	handleErr := handler.Handle(handlerCtx, []byte(msg))
	var err error
	switch {
	case handleErr == nil:
		err = q.rdb.LRem(settleCtx, q.ProcessingKey(), 1, msg).Err()
	case IsPoison(handleErr):
		span.AddEvent("dead_lettering_message", trace.WithAttributes(
			attribute.String("error", handleErr.Error()),
		))
		_, err = q.rdb.TxPipelined(settleCtx, func(pipe redis.Pipeliner) error {
			pipe.LRem(settleCtx, q.ProcessingKey(), 1, msg)
			pipe.LPush(settleCtx, q.DeadLetterKey(), msg)
			return nil
		})
	default:
		span.AddEvent("failed_message_handler", trace.WithAttributes(
			attribute.String("error", handleErr.Error()),
		))
		_, err = q.rdb.TxPipelined(settleCtx, func(pipe redis.Pipeliner) error {
			pipe.LRem(settleCtx, q.ProcessingKey(), 1, msg)
			pipe.LPush(settleCtx, q.key, msg)
			return nil
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to settle message")
		return err
	}

	// the message is already back on the queue, surface the failure so the caller backs off
	if handleErr != nil && !IsPoison(handleErr) {
		err = fmt.Errorf("%w: %w", ErrRequeued, handleErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "requeued message after handler failure")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "dequeued message")
	return nil
}

// Moves every message stranded on the processing list back onto the queue.
// Only safe while no other consumer of the same key is running.
func (q *RedisQueuer) Recover(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Redis.Recover", trace.WithAttributes(
		attribute.String("key", q.key),
	))
	defer span.End()

	recovered := 0
	for {
		err := q.rdb.LMove(ctx, q.ProcessingKey(), q.key, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to recover message")
			return recovered, err
		}
		recovered++
	}

	span.SetAttributes(attribute.Int("recovered", recovered))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recovered messages")
	return recovered, nil
}
