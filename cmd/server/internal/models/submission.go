package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codearena/judge-api/internal/types"
)

type Submission struct {
	SubmittedAt time.Time
	Language    string
	Source      string
	Status      types.SubmissionStatus `gorm:"type:text;default:PENDING"`
	Log         string
	Model
	Results    []SubmissionResult `gorm:"foreignKey:SubmissionID"`
	TotalScore float64
	AuthorID   uuid.UUID
	ProblemID  datatypes.Null[uuid.UUID]
	ContestID  datatypes.Null[uuid.UUID]
}

func (Submission) TableName() string {
	return "submission"
}

func (s Submission) GetID() uuid.UUID {
	return s.ID
}

// Renders the submission the way it is shown to clients. Results must already be loaded.
func (s Submission) Snapshot() types.SubmissionSnapshot {
	results := make([]types.SubmissionResult, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, r.Result())
	}

	return types.SubmissionSnapshot{
		ID:          s.ID.String(),
		AuthorID:    s.AuthorID.String(),
		ProblemID:   stringPtr(PtrFromNull(s.ProblemID)),
		ContestID:   stringPtr(PtrFromNull(s.ContestID)),
		Language:    s.Language,
		Status:      s.Status,
		TotalScore:  s.TotalScore,
		Log:         s.Log,
		SubmittedAt: s.SubmittedAt,
		UpdatedAt:   s.UpdatedAt,
		Results:     results,
	}
}

type SubmissionResult struct {
	Slug   string
	Status types.SubmissionStatus `gorm:"type:text"`
	Model
	// milliseconds
	ExecutionTime float64
	// kilobytes
	MemoryUsed float64
	SubmissionID uuid.UUID
}

func (SubmissionResult) TableName() string {
	return "submission_result"
}

func (r SubmissionResult) GetID() uuid.UUID {
	return r.ID
}

func (r SubmissionResult) Result() types.SubmissionResult {
	return types.SubmissionResult{
		ID:            r.ID.String(),
		Slug:          r.Slug,
		Status:        r.Status,
		ExecutionTime: r.ExecutionTime,
		MemoryUsed:    r.MemoryUsed,
	}
}

// Loads a submission with its results in insertion order
func SubmissionWithResults(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Submission, error) {
	ctx, span := tracer.Start(ctx, "SubmissionWithResults")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", id.String()))

	var submission Submission
	err := db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&submission, id).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "loaded submission")
	return &submission, nil
}

// Every submission made to a contest, oldest first
func ContestSubmissions(ctx context.Context, db *gorm.DB, contestID uuid.UUID) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "ContestSubmissions")
	defer span.End()

	span.SetAttributes(attribute.String("contest.id", contestID.String()))

	var submissions []Submission
	err := db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("submitted_at ASC, id ASC").
		Find(&submissions).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list contest submissions")
		return nil, err
	}

	span.SetAttributes(attribute.Int("submission.count", len(submissions)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed contest submissions")
	return submissions, nil
}

func stringPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}

	s := id.String()
	return &s
}
