package models

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/codearena/judge-api/cmd/server/internal/migrations"
	"github.com/codearena/judge-api/internal/types"
)

func startDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16.4-alpine",
		postgres.WithDatabase("judgeapi"),
		postgres.WithUsername("judgeapi"),
		postgres.WithPassword("judgeapi"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	t.Cleanup(func() {
		err := testcontainers.TerminateContainer(postgresContainer)
		assert.NoError(t, err, "failed to terminate container")
	})
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := postgresContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string to container")

	db, err := gorm.Open(gormpostgres.Open(dsn))
	require.NoError(t, err, "failed to connect to the database")

	err = migrations.Up(ctx, db)
	require.NoError(t, err, "failed to migrate db")

	return db
}

func TestUtilities(t *testing.T) {
	db := startDB(t)

	problem := &Problem{Title: "A + B", ScoringMethod: types.ScoringMethodStandard, Point: 100}
	result := db.Create(problem)
	require.NoError(t, result.Error, "failed to write element to db")

	t.Run("ExistsByID", func(t *testing.T) {
		exists, err := Exists[Problem](context.Background(), db, "id = ?", problem.ID)
		require.NoError(t, err, "failed to check db for existence")

		assert.True(t, exists, "did not find the object")
	})

	t.Run("ExistsByTitle", func(t *testing.T) {
		exists, err := Exists[Problem](context.Background(), db, "title = ?", problem.Title)
		require.NoError(t, err, "failed to check db for existence")

		assert.True(t, exists, "did not find the object")
	})

	t.Run("DoesNotExistByID", func(t *testing.T) {
		exists, err := Exists[Problem](context.Background(), db, "id = ?", uuid.New())
		require.NoError(t, err, "failed to check db for existence")

		assert.False(t, exists, "should not find object")
	})

	t.Run("ByID", func(t *testing.T) {
		got, err := ByID[Problem](context.Background(), db, problem.ID)
		require.NoError(t, err, "failed to get problem")

		assert.Equal(t, problem.Title, got.Title)
		assert.Equal(t, types.ScoringMethodStandard, got.ScoringMethod)
		assert.InDelta(t, 100.0, got.Point, 0)
	})

	t.Run("ByIDMissing", func(t *testing.T) {
		_, err := ByID[Problem](context.Background(), db, uuid.New())
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("Nulls", func(t *testing.T) {
		id := uuid.New()
		assert.Nil(t, PtrFromNull(NewNull[uuid.UUID](nil)))
		assert.Equal(t, &id, PtrFromNull(NewNull(&id)))
		assert.Equal(t, &id, PtrFromNull(NewNullFromData(id)))
	})
}

func TestSubmissions(t *testing.T) {
	db := startDB(t)
	ctx := context.Background()

	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	contest := &Contest{Title: "round 1", StartTime: start, EndTime: start.Add(2 * time.Hour), Penalty: 1200}
	require.NoError(t, db.Create(contest).Error)

	problem := &Problem{Title: "A + B", ScoringMethod: types.ScoringMethodStandard, Point: 100}
	require.NoError(t, db.Create(problem).Error)

	author := uuid.New()
	newSubmission := func(contestID *uuid.UUID, at time.Time) *Submission {
		s := &Submission{
			AuthorID:    author,
			ProblemID:   NewNullFromData(problem.ID),
			ContestID:   NewNull(contestID),
			Language:    "cpp",
			Source:      "int main() {}",
			Status:      types.SubmissionStatusPending,
			SubmittedAt: at,
		}
		require.NoError(t, db.Create(s).Error)
		return s
	}

	later := newSubmission(&contest.ID, start.Add(30*time.Minute))
	earlier := newSubmission(&contest.ID, start.Add(10*time.Minute))
	newSubmission(nil, start.Add(20*time.Minute))

	t.Run("ContestSubmissionsOrdered", func(t *testing.T) {
		submissions, err := ContestSubmissions(ctx, db, contest.ID)
		require.NoError(t, err)

		require.Len(t, submissions, 2)
		assert.Equal(t, earlier.ID, submissions[0].ID)
		assert.Equal(t, later.ID, submissions[1].ID)
	})

	t.Run("ContestSubmissionsEmpty", func(t *testing.T) {
		submissions, err := ContestSubmissions(ctx, db, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, submissions)
	})

	t.Run("WithResults", func(t *testing.T) {
		results := []SubmissionResult{
			{SubmissionID: earlier.ID, Slug: "s1/1", Status: types.SubmissionStatusAccepted, ExecutionTime: 12, MemoryUsed: 1024},
			{SubmissionID: earlier.ID, Slug: "s1/2", Status: types.SubmissionStatusWrongAnswer, ExecutionTime: 15, MemoryUsed: 2048},
		}
		require.NoError(t, db.Create(&results).Error)

		got, err := SubmissionWithResults(ctx, db, earlier.ID)
		require.NoError(t, err)

		require.Len(t, got.Results, 2)
		assert.Equal(t, "s1/1", got.Results[0].Slug)
		assert.Equal(t, "s1/2", got.Results[1].Slug)

		snapshot := got.Snapshot()
		assert.Equal(t, earlier.ID.String(), snapshot.ID)
		assert.Equal(t, author.String(), snapshot.AuthorID)
		require.NotNil(t, snapshot.ContestID)
		assert.Equal(t, contest.ID.String(), *snapshot.ContestID)
		assert.Equal(t, types.SubmissionStatusPending, snapshot.Status)
		require.Len(t, snapshot.Results, 2)
		assert.Equal(t, types.SubmissionStatusWrongAnswer, snapshot.Results[1].Status)
		assert.InDelta(t, 2048.0, snapshot.Results[1].MemoryUsed, 0)
	})

	t.Run("WithResultsMissing", func(t *testing.T) {
		_, err := SubmissionWithResults(ctx, db, uuid.New())
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("StatusCheckConstraint", func(t *testing.T) {
		err := db.Model(&Submission{}).
			Where("id = ?", later.ID).
			Update("status", "BOGUS").Error
		require.Error(t, err, "db should reject unknown statuses")
	})
}
