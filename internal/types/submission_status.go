package types

import "fmt"

// Lifecycle of a submission.
//
// PENDING -> JUDGING -> one terminal state. Terminal states never change.
type SubmissionStatus string

const (
	SubmissionStatusPending             SubmissionStatus = "PENDING"
	SubmissionStatusJudging             SubmissionStatus = "JUDGING"
	SubmissionStatusAccepted            SubmissionStatus = "ACCEPTED"
	SubmissionStatusWrongAnswer         SubmissionStatus = "WRONG_ANSWER"
	SubmissionStatusRuntimeError        SubmissionStatus = "RUNTIME_ERROR"
	SubmissionStatusTimeLimitExceeded   SubmissionStatus = "TIME_LIMIT_EXCEEDED"
	SubmissionStatusMemoryLimitExceeded SubmissionStatus = "MEMORY_LIMIT_EXCEEDED"
	SubmissionStatusOutputLimitExceeded SubmissionStatus = "OUTPUT_LIMIT_EXCEEDED"
	SubmissionStatusCompilationError    SubmissionStatus = "COMPILATION_ERROR"
	SubmissionStatusInternalError       SubmissionStatus = "INTERNAL_ERROR"
)

// Statuses a submission may still leave
var OpenSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusJudging,
}

func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusJudging:
		return false
	default:
		return true
	}
}

func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	status := SubmissionStatus(s)
	switch status {
	case SubmissionStatusPending,
		SubmissionStatusJudging,
		SubmissionStatusAccepted,
		SubmissionStatusWrongAnswer,
		SubmissionStatusRuntimeError,
		SubmissionStatusTimeLimitExceeded,
		SubmissionStatusMemoryLimitExceeded,
		SubmissionStatusOutputLimitExceeded,
		SubmissionStatusCompilationError,
		SubmissionStatusInternalError:
		return status, nil
	default:
		return "", fmt.Errorf("%w: submission status %q", ErrUnknownStatus, s)
	}
}
