package ingress

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"

	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/queue"
)

func dequeueBackoff() retry.Backoff {
	b := retry.NewExponential(100 * time.Millisecond)
	return retry.WithCappedDuration(30*time.Second, b)
}

// Handles judger messages from qr until `ctx` is cancelled. Queue and
// retryable handler failures back off exponentially, a successful dequeue
// resets the backoff.
func MonitorVerdictQueue(
	ctx context.Context,
	qr queue.Queuer,
	handler queue.MessageHandler,
	timeout time.Duration,
) {
	ctx, span := tracer.Start(ctx, "MonitorVerdictQueue")
	defer span.End()

	log := logger.Named("ingress")
	backoff := dequeueBackoff()

	for ctx.Err() == nil {
		err := func() error {
			//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
			ctx, span := tracer.Start(ctx, "MonitorVerdictQueue.Loop")
			defer span.End()

			if err := qr.Dequeue(ctx, timeout, handler); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to dequeue and handle message")
				return err
			}

			return nil
		}()
		if err == nil {
			backoff = dequeueBackoff()
			continue
		}
		if ctx.Err() != nil {
			break
		}

		delay, _ := backoff.Next()
		log.WarnContext(ctx, "failed to dequeue or handle judger message", "error", err, "retryIn", delay)

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}

	span.AddEvent("stopped")
}
