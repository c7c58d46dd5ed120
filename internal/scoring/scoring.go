// Package scoring turns per test case verdicts into an overall status and score.
package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codearena/judge-api/internal/types"
)

var ErrUnknownScoringMethod = errors.New("unknown scoring method")

type Verdict struct {
	Slug   string
	Status types.SubmissionStatus
}

type Outcome struct {
	Status types.SubmissionStatus
	Score  float64
}

// Higher is worse. Only statuses a single test case can end in are ranked.
func Severity(status types.SubmissionStatus) (int, error) {
	switch status {
	case types.SubmissionStatusAccepted:
		return 0, nil
	case types.SubmissionStatusWrongAnswer:
		return 1, nil
	case types.SubmissionStatusOutputLimitExceeded:
		return 2, nil
	case types.SubmissionStatusMemoryLimitExceeded:
		return 3, nil
	case types.SubmissionStatusTimeLimitExceeded:
		return 4, nil
	case types.SubmissionStatusRuntimeError:
		return 5, nil
	default:
		return 0, fmt.Errorf("%w: %q is not a test case verdict", types.ErrUnknownStatus, status)
	}
}

// Worst status among verdicts. ACCEPTED only when every verdict is ACCEPTED.
func Worst(verdicts []Verdict) (types.SubmissionStatus, error) {
	worst := types.SubmissionStatusAccepted
	worstSeverity := 0
	for _, v := range verdicts {
		severity, err := Severity(v.Status)
		if err != nil {
			return "", err
		}
		if severity > worstSeverity {
			worst = v.Status
			worstSeverity = severity
		}
	}

	return worst, nil
}

// Scores verdicts against a problem worth point.
//
// An empty verdict list scores 0 with INTERNAL_ERROR under every method: a
// judged submission without test cases means the problem or judger is broken.
func Score(method types.ScoringMethod, point float64, verdicts []Verdict) (Outcome, error) {
	var score func(float64, []Verdict) (Outcome, error)
	switch method {
	case types.ScoringMethodStandard:
		score = standard
	case types.ScoringMethodSubtask:
		score = subtask
	case types.ScoringMethodICPC:
		score = icpc
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownScoringMethod, method)
	}

	if len(verdicts) == 0 {
		return Outcome{Status: types.SubmissionStatusInternalError}, nil
	}

	return score(point, verdicts)
}

func standard(point float64, verdicts []Verdict) (Outcome, error) {
	status, err := Worst(verdicts)
	if err != nil {
		return Outcome{}, err
	}

	accepted := 0
	for _, v := range verdicts {
		if v.Status == types.SubmissionStatusAccepted {
			accepted++
		}
	}

	return Outcome{
		Status: status,
		Score:  float64(accepted) / float64(len(verdicts)) * point,
	}, nil
}

func icpc(point float64, verdicts []Verdict) (Outcome, error) {
	status, err := Worst(verdicts)
	if err != nil {
		return Outcome{}, err
	}

	if status != types.SubmissionStatusAccepted {
		return Outcome{Status: status}, nil
	}

	return Outcome{Status: status, Score: point}, nil
}

func subtask(point float64, verdicts []Verdict) (Outcome, error) {
	groups := GroupBySubtask(verdicts)

	total := float64(len(verdicts))
	outcome := Outcome{Status: types.SubmissionStatusAccepted}
	worstSeverity := 0
	for _, group := range groups {
		status, err := Worst(group.Verdicts)
		if err != nil {
			return Outcome{}, err
		}

		if status == types.SubmissionStatusAccepted {
			outcome.Score += float64(len(group.Verdicts)) / total * point
			continue
		}

		// Worst already validated status
		severity, _ := Severity(status)
		if severity > worstSeverity {
			outcome.Status = status
			worstSeverity = severity
		}
	}

	return outcome, nil
}

type Subtask struct {
	Slug     string
	Verdicts []Verdict
}

// Subtask slug is everything before the first "/". A slug without one is its
// own subtask. Subtasks keep the order of their first test case.
func SubtaskSlug(slug string) string {
	prefix, _, _ := strings.Cut(slug, "/")
	return prefix
}

func GroupBySubtask(verdicts []Verdict) []Subtask {
	index := make(map[string]int)
	groups := []Subtask{}
	for _, v := range verdicts {
		key := SubtaskSlug(v.Slug)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Subtask{Slug: key})
		}
		groups[i].Verdicts = append(groups[i].Verdicts, v)
	}

	return groups
}
