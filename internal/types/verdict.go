package types

import (
	"errors"
	"fmt"
)

var ErrUnknownStatus = errors.New("unknown status")

// Per test case verdict codes as sent by judgers
type TestCaseStatus string

const (
	TestCaseStatusAccepted            TestCaseStatus = "AC"
	TestCaseStatusWrongAnswer         TestCaseStatus = "WA"
	TestCaseStatusRuntimeError        TestCaseStatus = "RTE"
	TestCaseStatusTimeLimitExceeded   TestCaseStatus = "TLE"
	TestCaseStatusMemoryLimitExceeded TestCaseStatus = "MLE"
)

// Maps a judger test case code onto the submission status vocabulary
func (s TestCaseStatus) SubmissionStatus() (SubmissionStatus, error) {
	switch s {
	case TestCaseStatusAccepted:
		return SubmissionStatusAccepted, nil
	case TestCaseStatusWrongAnswer:
		return SubmissionStatusWrongAnswer, nil
	case TestCaseStatusRuntimeError:
		return SubmissionStatusRuntimeError, nil
	case TestCaseStatusTimeLimitExceeded:
		return SubmissionStatusTimeLimitExceeded, nil
	case TestCaseStatusMemoryLimitExceeded:
		return SubmissionStatusMemoryLimitExceeded, nil
	default:
		return "", fmt.Errorf("%w: test case status %q", ErrUnknownStatus, string(s))
	}
}

// Overall outcome of a judging run as sent by judgers
type ResultStatus string

const (
	ResultStatusOK               ResultStatus = "OK"
	ResultStatusCompilationError ResultStatus = "CE"
	ResultStatusInternalError    ResultStatus = "IE"
)

// Terminal status for results that skip scoring. ok is false for [ResultStatusOK].
func (s ResultStatus) ShortCircuit() (status SubmissionStatus, ok bool, err error) {
	switch s {
	case ResultStatusOK:
		return "", false, nil
	case ResultStatusCompilationError:
		return SubmissionStatusCompilationError, true, nil
	case ResultStatusInternalError:
		return SubmissionStatusInternalError, true, nil
	default:
		return "", false, fmt.Errorf("%w: result status %q", ErrUnknownStatus, string(s))
	}
}

type ScoringMethod string

const (
	ScoringMethodStandard ScoringMethod = "STANDARD"
	ScoringMethodSubtask  ScoringMethod = "SUBTASK"
	ScoringMethodICPC     ScoringMethod = "ICPC"
)
