// Package ingress consumes judger messages and drives submissions through
// their lifecycle.
//
// Delivery is at-least-once. Every transition is guarded by the submission's
// current status so a redelivered or duplicate message changes nothing and
// publishes nothing.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codearena/judge-api/cmd/server/internal/livefeed"
	"github.com/codearena/judge-api/cmd/server/internal/models"
	"github.com/codearena/judge-api/internal/audit"
	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/queue"
	"github.com/codearena/judge-api/internal/scoring"
	"github.com/codearena/judge-api/internal/types"
	"github.com/codearena/judge-api/internal/validator"
)

const name string = "github.com/codearena/judge-api/cmd/server/internal/ingress"

var tracer = otel.Tracer(name)
var meter = otel.Meter(name)

var ErrUnknownSubmission = errors.New("unknown submission")

type outcome string

const (
	outcomeApplied   outcome = "applied"
	outcomeDuplicate outcome = "duplicate"
	outcomePoison    outcome = "poison"
	outcomeFailed    outcome = "failed"
)

type Handler struct {
	db        *gorm.DB
	publisher livefeed.Publisher
	valid     validator.CustomValidator
	log       *slog.Logger
	messages  metric.Int64Counter
}

var _ queue.MessageHandler = (*Handler)(nil)

func NewHandler(db *gorm.DB, publisher livefeed.Publisher) (*Handler, error) {
	messages, err := meter.Int64Counter(
		"judge.ingress.messages",
		metric.WithDescription("Judger messages handled, by kind and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingress counter: %w", err)
	}

	return &Handler{
		db:        db,
		publisher: publisher,
		valid:     validator.Create(),
		log:       logger.Named("ingress"),
		messages:  messages,
	}, nil
}

func auditContext(s *models.Submission) audit.Context {
	authorID := s.AuthorID.String()
	c := audit.Context{AuthorID: &authorID}
	if s.ContestID.Valid {
		contestID := s.ContestID.V.String()
		c.ContestID = &contestID
	}
	return c
}

func parseSubmissionID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, queue.WrapPoisonError(fmt.Errorf("failed to parse submission id: %w", err))
	}
	return parsed, nil
}

// Moves a submission from PENDING to JUDGING
func (h *Handler) HandleAck(ctx context.Context, msg *types.JudgerMsgAck) (outcome, error) {
	ctx, span := tracer.Start(ctx, "HandleAck", trace.WithAttributes(
		attribute.String("submission.id", msg.ID),
		attribute.String("judger.id", msg.JudgerID),
	))
	defer span.End()

	id, err := parseSubmissionID(msg.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid submission id")
		return outcomePoison, err
	}

	db := h.db.WithContext(ctx)

	span.AddEvent("marking submission as judging")
	var submission models.Submission
	result := db.Model(&submission).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Where("status = ?", types.SubmissionStatusPending).
		Update("status", types.SubmissionStatusJudging)
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, "failed to update submission")
		return outcomeFailed, result.Error
	}

	if result.RowsAffected == 0 {
		exists, err := models.Exists[models.Submission](ctx, db, "id = ?", id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to check submission existence")
			return outcomeFailed, err
		}
		if !exists {
			err = queue.WrapPoisonError(fmt.Errorf("%w: %s", ErrUnknownSubmission, id))
			span.RecordError(err)
			span.SetStatus(codes.Error, "submission does not exist")
			return outcomePoison, err
		}

		h.log.DebugContext(ctx, "ignoring ack for submission that is not pending",
			"submissionID", id, "judgerID", msg.JudgerID)
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submission was not pending")
		return outcomeDuplicate, nil
	}

	audit.LogJudgingStarted(auditContext(&submission), msg.ID, msg.JudgerID)
	h.publish(ctx, id)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "submission is judging")
	return outcomeApplied, nil
}

type verdict struct {
	status types.SubmissionStatus
	score  float64
	log    string
	rows   []models.SubmissionResult
}

// Resolves the submission's final state from a result message. Problems that
// lie with the stored problem rather than the message end in INTERNAL_ERROR.
func (h *Handler) judge(
	ctx context.Context,
	db *gorm.DB,
	submission *models.Submission,
	msg *types.JudgerMsgResult,
) (*verdict, error) {
	status, short, err := msg.Status.ShortCircuit()
	if err != nil {
		return nil, queue.WrapPoisonError(err)
	}
	if short {
		return &verdict{status: status, log: msg.Log}, nil
	}

	verdicts := make([]scoring.Verdict, 0, len(msg.TestResults))
	rows := make([]models.SubmissionResult, 0, len(msg.TestResults))
	for _, tr := range msg.TestResults {
		status, err := tr.Status.SubmissionStatus()
		if err != nil {
			return nil, queue.WrapPoisonError(err)
		}

		verdicts = append(verdicts, scoring.Verdict{Slug: tr.Slug, Status: status})
		rows = append(rows, models.SubmissionResult{
			SubmissionID:  submission.ID,
			Slug:          tr.Slug,
			Status:        status,
			ExecutionTime: tr.Time,
			MemoryUsed:    tr.Memory,
		})
	}

	v := &verdict{log: msg.Log, rows: rows}
	internalError := func(reason string) (*verdict, error) {
		h.log.WarnContext(ctx, "could not score submission",
			"submissionID", submission.ID, "reason", reason)
		v.status = types.SubmissionStatusInternalError
		v.score = 0
		if v.log != "" {
			v.log += "\n"
		}
		v.log += reason
		return v, nil
	}

	if !submission.ProblemID.Valid {
		return internalError("submission has no problem")
	}

	problem, err := models.ByID[models.Problem](ctx, db, submission.ProblemID.V)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(fmt.Sprintf("problem %s not found", submission.ProblemID.V))
	} else if err != nil {
		return nil, err
	}

	out, err := scoring.Score(problem.ScoringMethod, problem.Point, verdicts)
	if err != nil {
		return internalError(err.Error())
	}

	v.status = out.Status
	v.score = out.Score
	return v, nil
}

// Applies a judger's final result. The status update and the result rows are
// written in one transaction.
func (h *Handler) HandleResult(ctx context.Context, msg *types.JudgerMsgResult) (outcome, error) {
	ctx, span := tracer.Start(ctx, "HandleResult", trace.WithAttributes(
		attribute.String("submission.id", msg.ID),
		attribute.String("judger.id", msg.JudgerID),
		attribute.String("result.status", string(msg.Status)),
		attribute.Int("result.test_cases", len(msg.TestResults)),
	))
	defer span.End()

	id, err := parseSubmissionID(msg.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid submission id")
		return outcomePoison, err
	}

	var submission models.Submission
	var applied *verdict
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		span.AddEvent("locking submission")
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&submission, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return queue.WrapPoisonError(fmt.Errorf("%w: %s", ErrUnknownSubmission, id))
		} else if err != nil {
			return err
		}

		if submission.Status.IsTerminal() {
			span.AddEvent("submission already judged", trace.WithAttributes(
				attribute.String("submission.status", string(submission.Status)),
			))
			return nil
		}

		v, err := h.judge(ctx, tx, &submission, msg)
		if err != nil {
			return err
		}

		span.AddEvent("storing verdict", trace.WithAttributes(
			attribute.String("submission.status", string(v.status)),
			attribute.Float64("submission.score", v.score),
		))
		result := tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Where("status IN ?", types.OpenSubmissionStatuses).
			Updates(map[string]any{
				"status":      v.status,
				"total_score": v.score,
				"log":         v.log,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if len(v.rows) > 0 {
			span.AddEvent("storing test case results")
			if err := tx.Create(&v.rows).Error; err != nil {
				return err
			}
		}

		applied = v
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to apply result")
		if queue.IsPoison(err) {
			return outcomePoison, err
		}
		return outcomeFailed, err
	}

	if applied == nil {
		h.log.DebugContext(ctx, "ignoring result for judged submission",
			"submissionID", id, "status", submission.Status, "judgerID", msg.JudgerID)
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submission was already judged")
		return outcomeDuplicate, nil
	}

	audit.LogSubmissionJudged(
		auditContext(&submission),
		msg.ID,
		msg.JudgerID,
		applied.status,
		applied.score,
		len(applied.rows),
	)
	h.publish(ctx, id)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "applied result")
	return outcomeApplied, nil
}

func (h *Handler) HandleHeartbeat(ctx context.Context, msg *types.JudgerMsgHeartbeat) (outcome, error) {
	h.log.DebugContext(ctx, "judger heartbeat",
		"judgerID", msg.JudgerID, "sentAt", msg.Timestamp.Time())
	return outcomeApplied, nil
}

// Sends the committed state of a submission to live listeners. Failures only
// cost listeners an update, they never fail the message.
func (h *Handler) publish(ctx context.Context, id uuid.UUID) {
	ctx, span := tracer.Start(ctx, "publish", trace.WithAttributes(
		attribute.String("submission.id", id.String()),
	))
	defer span.End()

	submission, err := models.SubmissionWithResults(ctx, h.db, id)
	if err != nil {
		h.log.WarnContext(ctx, "failed to load submission for live update", "submissionID", id, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return
	}

	if err := h.publisher.Publish(ctx, livefeed.SubmissionUpdate(submission.Snapshot())); err != nil {
		h.log.WarnContext(ctx, "failed to publish live update", "submissionID", id, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish")
		return
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "published")
}

func decode[T any](message []byte, valid *validator.CustomValidator) (*T, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		return nil, queue.WrapPoisonError(err)
	}
	if err := valid.Validate(&msg); err != nil {
		return nil, queue.WrapPoisonError(err)
	}
	return &msg, nil
}

func (h *Handler) Handle(ctx context.Context, message []byte) error {
	ctx, span := tracer.Start(ctx, "Handler.Handle", trace.WithNewRoot())
	defer span.End()

	var baseMsg types.JudgerMsg
	if err := json.Unmarshal(message, &baseMsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal queue message into generic type")
		h.reject(ctx, "", outcomePoison, err)
		return queue.WrapPoisonError(err)
	}

	span.SetAttributes(attribute.String("msg.type", string(baseMsg.Type)))

	if err := validateSchema(baseMsg.Type, message); err != nil {
		err = queue.WrapPoisonError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "message failed schema validation")
		h.reject(ctx, baseMsg.Type, outcomePoison, err)
		return err
	}

	var out outcome
	var err error
	switch baseMsg.Type {
	case types.MsgTypeAck:
		var msg *types.JudgerMsgAck
		if msg, err = decode[types.JudgerMsgAck](message, &h.valid); err == nil {
			out, err = h.HandleAck(ctx, msg)
		}
	case types.MsgTypeResult:
		var msg *types.JudgerMsgResult
		if msg, err = decode[types.JudgerMsgResult](message, &h.valid); err == nil {
			out, err = h.HandleResult(ctx, msg)
		}
	case types.MsgTypeHeartbeat:
		var msg *types.JudgerMsgHeartbeat
		if msg, err = decode[types.JudgerMsgHeartbeat](message, &h.valid); err == nil {
			out, err = h.HandleHeartbeat(ctx, msg)
		}
	default:
		// validateSchema rejects unknown kinds before this point
		err = queue.WrapPoisonError(fmt.Errorf("unknown message type %q", baseMsg.Type))
	}

	if err != nil {
		if queue.IsPoison(err) {
			out = outcomePoison
		} else {
			out = outcomeFailed
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to handle")
		h.reject(ctx, baseMsg.Type, out, err)
		return err
	}

	h.count(ctx, baseMsg.Type, out)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "handled")
	return nil
}

func (h *Handler) count(ctx context.Context, msgType types.MsgType, out outcome) {
	h.messages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(msgType)),
		attribute.String("outcome", string(out)),
	))
}

func (h *Handler) reject(ctx context.Context, msgType types.MsgType, out outcome, err error) {
	h.count(ctx, msgType, out)
	if out == outcomePoison {
		h.log.WarnContext(ctx, "dropping unprocessable judger message", "msgType", msgType, "error", err)
		audit.LogVerdictRejected(msgType, err.Error())
		return
	}
	h.log.ErrorContext(ctx, "failed to handle judger message, it will be redelivered",
		"msgType", msgType, "error", err)
}
