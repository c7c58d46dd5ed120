package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codearena/judge-api/internal/config"
)

// Builds the verdict queue selected by cfg.Backend. rdb is only used by the redis backend.
func FromConfig(ctx context.Context, cfg *config.QueueConfig, rdb *redis.Client) (Queuer, error) {
	ctx, span := tracer.Start(ctx, "FromConfig", trace.WithAttributes(
		attribute.String("backend", string(cfg.Backend)),
	))
	defer span.End()

	switch cfg.Backend {
	case config.QueueBackendAzure:
		qr, err := NewAzureQueuer(
			cfg.Azure.AccountName,
			cfg.Azure.AccountKey,
			cfg.Azure.URL,
			cfg.Azure.Name,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create azure queuer")
			return nil, err
		}

		if cfg.Azure.Dev {
			if err = qr.CreateIfMissing(ctx); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to create azure queue")
				return nil, fmt.Errorf("failed to create azure queue: %w", err)
			}
		}

		span.SetStatus(codes.Ok, "created azure queuer")
		return qr, nil
	case config.QueueBackendRedis:
		if rdb == nil {
			err := fmt.Errorf("queue backend %q needs a redis client", cfg.Backend)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetStatus(codes.Ok, "created redis queuer")
		return NewRedisQueuer(rdb, cfg.Redis.Key), nil
	default:
		err := fmt.Errorf("unsupported queue backend %q", cfg.Backend)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
}
