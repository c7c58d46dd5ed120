package judgerqueue

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codearena/judge-api/internal/queue"
	"github.com/codearena/judge-api/internal/types"
)

var tracer = otel.Tracer(
	"github.com/codearena/judge-api/mock_judger/internal/judgerqueue",
)

// Speaks the judger side of the verdict queue for one judger identity
type JudgerQueuer struct {
	queuer   queue.Queuer
	judgerID string
}

func NewJudgerQueue(judgerID string, queuer queue.Queuer) *JudgerQueuer {
	return &JudgerQueuer{
		judgerID: judgerID,
		queuer:   queuer,
	}
}

func (q *JudgerQueuer) enqueue(ctx context.Context, span trace.Span, message any) error {
	err := q.queuer.Enqueue(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued message")
	return nil
}

func (q *JudgerQueuer) Ack(ctx context.Context, submissionID string) error {
	ctx, span := tracer.Start(ctx, "JudgerQueuer.Ack", trace.WithAttributes(
		attribute.String("judger.id", q.judgerID),
		attribute.String("submission.id", submissionID),
	))
	defer span.End()

	return q.enqueue(ctx, span, types.NewJudgerMsgAck(submissionID, q.judgerID))
}

func (q *JudgerQueuer) Result(
	ctx context.Context,
	submissionID string,
	status types.ResultStatus,
	log string,
	testResults []types.JudgerTestResult,
) error {
	ctx, span := tracer.Start(ctx, "JudgerQueuer.Result", trace.WithAttributes(
		attribute.String("judger.id", q.judgerID),
		attribute.String("submission.id", submissionID),
		attribute.String("status", string(status)),
		attribute.Int("test_results", len(testResults)),
	))
	defer span.End()

	return q.enqueue(ctx, span, types.NewJudgerMsgResult(submissionID, q.judgerID, status, log, testResults))
}

func (q JudgerQueuer) Heartbeat(ctx context.Context, at types.UnixMilli) error {
	ctx, span := tracer.Start(ctx, "JudgerQueuer.Heartbeat", trace.WithAttributes(
		attribute.String("judger.id", q.judgerID),
	))
	defer span.End()

	return q.enqueue(ctx, span, types.NewJudgerMsgHeartbeat(q.judgerID, at))
}
