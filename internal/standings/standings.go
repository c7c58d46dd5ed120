// Package standings ranks contest participants from their submission history.
//
// Results are never stored; every call recomputes from the full history.
package standings

import (
	"bytes"
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/codearena/judge-api/internal/types"
)

type Contest struct {
	StartTime time.Time
	// Seconds added per wrong attempt made before a solve
	Penalty int64
}

type Submission struct {
	AuthorID uuid.UUID
	// nil when the problem has been removed
	ProblemID   *uuid.UUID
	Status      types.SubmissionStatus
	TotalScore  float64
	SubmittedAt time.Time
}

type ProblemStanding struct {
	Score float64 `json:"score"`
	// Seconds from contest start to the first solve, excluding penalty
	Time          int64 `json:"time"`
	WrongAttempts int   `json:"wrong_attempts"`
	Solved        bool  `json:"solved"`
}

type UserStanding struct {
	Problems   map[uuid.UUID]*ProblemStanding `json:"problems"`
	UserID     uuid.UUID                      `json:"user_id"`
	Rank       int                            `json:"rank"`
	TotalScore float64                        `json:"total_score"`
	// Solve times plus penalties, in seconds
	TotalTime int64 `json:"total_time"`
}

// Relative tolerance for score sums, which depend on the order problems were solved in
const scoreEpsilon = 1e-9

func compareScore(a, b float64) int {
	if math.Abs(a-b) <= scoreEpsilon*max(1, math.Abs(a), math.Abs(b)) {
		return 0
	}
	return cmp.Compare(a, b)
}

// Only finished judging counts. Internal errors are not the author's fault.
func counts(status types.SubmissionStatus) bool {
	return status.IsTerminal() && status != types.SubmissionStatusInternalError
}

// Compute builds the ranked standings table.
//
// The first submission reaching a positive score locks the (user, problem)
// slot: later submissions to it add neither score, time nor penalty. Users are
// ordered by score descending then time ascending. Equal (score, time) pairs
// share a rank (1, 2, 2, 4) and are listed by user id.
func Compute(contest Contest, submissions []Submission) []UserStanding {
	ordered := slices.Clone(submissions)
	slices.SortStableFunc(ordered, func(a, b Submission) int {
		return a.SubmittedAt.Compare(b.SubmittedAt)
	})

	users := make(map[uuid.UUID]*UserStanding)
	for _, s := range ordered {
		if s.ProblemID == nil || !counts(s.Status) {
			continue
		}

		user, ok := users[s.AuthorID]
		if !ok {
			user = &UserStanding{
				UserID:   s.AuthorID,
				Problems: make(map[uuid.UUID]*ProblemStanding),
			}
			users[s.AuthorID] = user
		}

		problem, ok := user.Problems[*s.ProblemID]
		if !ok {
			problem = &ProblemStanding{}
			user.Problems[*s.ProblemID] = problem
		}

		if problem.Solved {
			continue
		}

		if s.TotalScore <= 0 {
			problem.WrongAttempts++
			continue
		}

		// submissions made before the start (practice, clock skew) count as solved at the start
		timeToSolve := max(int64(s.SubmittedAt.Sub(contest.StartTime)/time.Second), 0)
		penalty := int64(problem.WrongAttempts) * contest.Penalty

		problem.Solved = true
		problem.Score = s.TotalScore
		problem.Time = timeToSolve

		user.TotalScore += s.TotalScore
		user.TotalTime += timeToSolve + penalty
	}

	table := make([]UserStanding, 0, len(users))
	for _, user := range users {
		table = append(table, *user)
	}

	slices.SortFunc(table, func(a, b UserStanding) int {
		if c := compareScore(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.TotalTime, b.TotalTime); c != 0 {
			return c
		}
		return bytes.Compare(a.UserID[:], b.UserID[:])
	})

	for i := range table {
		if i > 0 &&
			compareScore(table[i].TotalScore, table[i-1].TotalScore) == 0 &&
			table[i].TotalTime == table[i-1].TotalTime {
			table[i].Rank = table[i-1].Rank
			continue
		}
		table[i].Rank = i + 1
	}

	return table
}
