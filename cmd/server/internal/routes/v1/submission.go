package v1

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/codearena/judge-api/cmd/server/internal/models"
	"github.com/codearena/judge-api/cmd/server/internal/response"
)

// Current state of a submission, the same snapshot live listeners receive
func (h *Handler) SubmissionStatus(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "SubmissionStatus")
	defer span.End()

	rawID := c.Param("submission_id")
	span.SetAttributes(attribute.String("submission.id.raw", rawID))

	id, err := uuid.Parse(rawID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Ok, "submission id is not a uuid")
		return response.NotFoundError
	}

	span.AddEvent("loading submission")
	submission, err := models.SubmissionWithResults(ctx, h.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "submission not found")
			return response.NotFoundError
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, submission.Snapshot())
}
