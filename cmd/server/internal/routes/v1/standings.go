package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/codearena/judge-api/cmd/server/internal/error"
	"github.com/codearena/judge-api/cmd/server/internal/models"
	"github.com/codearena/judge-api/cmd/server/internal/response"
	"github.com/codearena/judge-api/internal/standings"
)

type StandingsResponse struct {
	Standings   []standings.UserStanding `json:"standings"`
	GeneratedAt time.Time                `json:"generated_at"`
}

func (h *Handler) Standings(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Standings")
	defer span.End()

	contest, ok := c.Get("contest").(*models.Contest)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("contest: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	requestTime, ok := c.Get("time").(time.Time)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("time: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("contest.id", contest.ID.String()),
		attribute.Int64("contest.penalty", contest.Penalty),
	)

	span.AddEvent("loading contest submissions")
	rows, err := models.ContestSubmissions(ctx, h.DB, contest.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load contest submissions")
		return response.InternalServerError
	}

	submissions := make([]standings.Submission, 0, len(rows))
	for _, row := range rows {
		submissions = append(submissions, standings.Submission{
			AuthorID:    row.AuthorID,
			ProblemID:   models.PtrFromNull(row.ProblemID),
			Status:      row.Status,
			TotalScore:  row.TotalScore,
			SubmittedAt: row.SubmittedAt,
		})
	}

	span.AddEvent("computing standings")
	table := standings.Compute(
		standings.Contest{StartTime: contest.StartTime, Penalty: contest.Penalty},
		submissions,
	)

	span.SetAttributes(attribute.Int("standings.users", len(table)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, StandingsResponse{Standings: table, GeneratedAt: requestTime.UTC()})
}
