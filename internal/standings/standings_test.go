package standings

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/judge-api/internal/types"
)

var (
	start    = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	contest  = Contest{StartTime: start, Penalty: 1200}
	alice    = uuid.MustParse("00000000-0000-7000-8000-000000000001")
	bob      = uuid.MustParse("00000000-0000-7000-8000-000000000002")
	carol    = uuid.MustParse("00000000-0000-7000-8000-000000000003")
	dave     = uuid.MustParse("00000000-0000-7000-8000-000000000004")
	problemA = uuid.MustParse("00000000-0000-7000-9000-00000000000a")
	problemB = uuid.MustParse("00000000-0000-7000-9000-00000000000b")
	problemC = uuid.MustParse("00000000-0000-7000-9000-00000000000c")
)

func sub(author uuid.UUID, problem uuid.UUID, status types.SubmissionStatus, score float64, offset time.Duration) Submission {
	return Submission{
		AuthorID:    author,
		ProblemID:   &problem,
		Status:      status,
		TotalScore:  score,
		SubmittedAt: start.Add(offset),
	}
}

func byUser(table []UserStanding) map[uuid.UUID]UserStanding {
	out := make(map[uuid.UUID]UserStanding, len(table))
	for _, u := range table {
		out[u.UserID] = u
	}
	return out
}

func TestCompute_FirstSolveLocksSlot(t *testing.T) {
	table := Compute(contest, []Submission{
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0, 5*time.Minute),
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0, 10*time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 30*time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 50*time.Minute),
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0, 55*time.Minute),
	})

	require.Len(t, table, 1)
	got := table[0]
	assert.Equal(t, 1, got.Rank)
	assert.Equal(t, 100.0, got.TotalScore)
	assert.Equal(t, int64(30*60+2*1200), got.TotalTime)

	problem := got.Problems[problemA]
	require.NotNil(t, problem)
	assert.Equal(t, &ProblemStanding{Score: 100, Time: 30 * 60, WrongAttempts: 2, Solved: true}, problem)
}

func TestCompute_PartialScoreSolves(t *testing.T) {
	table := Compute(contest, []Submission{
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 75, time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 2*time.Minute),
	})

	require.Len(t, table, 1)
	assert.Equal(t, 75.0, table[0].TotalScore)
	assert.Equal(t, int64(60), table[0].TotalTime)
}

func TestCompute_Ordering(t *testing.T) {
	table := Compute(contest, []Submission{
		// alice: 200 points, late
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 100*time.Minute),
		sub(alice, problemB, types.SubmissionStatusAccepted, 100, 110*time.Minute),
		// bob: 100 points, fast
		sub(bob, problemA, types.SubmissionStatusAccepted, 100, time.Minute),
		// carol: 100 points, slower than bob
		sub(carol, problemB, types.SubmissionStatusAccepted, 100, 2*time.Minute),
		// dave: never solves
		sub(dave, problemA, types.SubmissionStatusTimeLimitExceeded, 0, time.Minute),
	})

	require.Len(t, table, 4)
	assert.Equal(t, alice, table[0].UserID)
	assert.Equal(t, bob, table[1].UserID)
	assert.Equal(t, carol, table[2].UserID)
	assert.Equal(t, dave, table[3].UserID)

	for i, u := range table {
		assert.Equal(t, i+1, u.Rank)
	}

	assert.Equal(t, 1, table[3].Problems[problemA].WrongAttempts)
	assert.False(t, table[3].Problems[problemA].Solved)
}

func TestCompute_SharedRank(t *testing.T) {
	table := Compute(contest, []Submission{
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, time.Minute),
		sub(carol, problemA, types.SubmissionStatusAccepted, 50, time.Minute),
		sub(bob, problemA, types.SubmissionStatusAccepted, 50, time.Minute),
		sub(dave, problemA, types.SubmissionStatusAccepted, 10, time.Minute),
	})

	require.Len(t, table, 4)
	ranks := []int{table[0].Rank, table[1].Rank, table[2].Rank, table[3].Rank}
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
	// ties are listed by user id
	assert.Equal(t, bob, table[1].UserID)
	assert.Equal(t, carol, table[2].UserID)
}

// 0.1+0.2+0.3 and 0.3+0.2+0.1 differ in the last bit as float64
func TestCompute_FractionalScoresShareRank(t *testing.T) {
	table := Compute(contest, []Submission{
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0.1, time.Minute),
		sub(alice, problemB, types.SubmissionStatusWrongAnswer, 0.2, 2*time.Minute),
		sub(alice, problemC, types.SubmissionStatusWrongAnswer, 0.3, 3*time.Minute),
		sub(bob, problemC, types.SubmissionStatusWrongAnswer, 0.3, time.Minute),
		sub(bob, problemB, types.SubmissionStatusWrongAnswer, 0.2, 2*time.Minute),
		sub(bob, problemA, types.SubmissionStatusWrongAnswer, 0.1, 3*time.Minute),
		sub(carol, problemA, types.SubmissionStatusWrongAnswer, 0.5, time.Minute),
	})

	require.Len(t, table, 3)
	assert.Equal(t, alice, table[0].UserID)
	assert.Equal(t, bob, table[1].UserID)
	assert.Equal(t, 1, table[0].Rank)
	assert.Equal(t, 1, table[1].Rank)
	assert.InDelta(t, 0.6, table[1].TotalScore, 1e-12)
	assert.Equal(t, carol, table[2].UserID)
	assert.Equal(t, 3, table[2].Rank)
}

func TestCompute_SolvedBeforeStart(t *testing.T) {
	table := Compute(contest, []Submission{
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0, -10*time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, -5*time.Minute),
		sub(bob, problemA, types.SubmissionStatusAccepted, 100, 0),
	})

	require.Len(t, table, 2)
	users := byUser(table)

	assert.Equal(t, int64(0), users[alice].Problems[problemA].Time)
	assert.Equal(t, int64(1200), users[alice].TotalTime)
	assert.Equal(t, int64(0), users[bob].TotalTime)
	assert.Equal(t, bob, table[0].UserID)
}

func TestCompute_SkippedSubmissions(t *testing.T) {
	table := Compute(contest, []Submission{
		{AuthorID: alice, ProblemID: nil, Status: types.SubmissionStatusAccepted, TotalScore: 100, SubmittedAt: start},
		sub(alice, problemA, types.SubmissionStatusPending, 0, time.Minute),
		sub(alice, problemA, types.SubmissionStatusJudging, 0, 2*time.Minute),
		sub(alice, problemA, types.SubmissionStatusInternalError, 0, 3*time.Minute),
		sub(alice, problemA, types.SubmissionStatusCompilationError, 0, 4*time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 5*time.Minute),
	})

	require.Len(t, table, 1)
	problem := byUser(table)[alice].Problems[problemA]
	assert.Equal(t, 1, problem.WrongAttempts, "only the compilation error counts")
	assert.Equal(t, int64(5*60+1200), table[0].TotalTime)
	assert.Len(t, table[0].Problems, 1)
}

func TestCompute_UnorderedInput(t *testing.T) {
	ordered := []Submission{
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0, time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 2*time.Minute),
	}
	reversed := []Submission{ordered[1], ordered[0]}

	assert.Equal(t, Compute(contest, ordered), Compute(contest, reversed))
	// input is not reordered in place
	assert.Equal(t, types.SubmissionStatusAccepted, reversed[0].Status)
}

func TestCompute_Idempotent(t *testing.T) {
	history := []Submission{
		sub(alice, problemA, types.SubmissionStatusWrongAnswer, 0, time.Minute),
		sub(bob, problemB, types.SubmissionStatusAccepted, 40, 3*time.Minute),
		sub(alice, problemA, types.SubmissionStatusAccepted, 100, 4*time.Minute),
		sub(carol, problemB, types.SubmissionStatusAccepted, 40, 3*time.Minute),
		sub(bob, problemA, types.SubmissionStatusRuntimeError, 0, 9*time.Minute),
	}

	first := Compute(contest, history)
	second := Compute(contest, history)
	assert.Equal(t, first, second)
}

func TestCompute_Empty(t *testing.T) {
	table := Compute(contest, nil)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}
