package audit

import (
	"github.com/codearena/judge-api/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type EventType string

const (
	EvtJudgingStarted   EventType = "judging_started"
	EvtSubmissionJudged EventType = "submission_judged"
	EvtVerdictRejected  EventType = "verdict_rejected"
)

type Message struct {
	ContestID     *string     `json:"contest_id"`
	AuthorID      *string     `json:"author_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type JudgingStartedEvent struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	JudgerID     string `json:"judger_id"     validate:"required"`
}

type JudgingStarted struct {
	Event JudgingStartedEvent `json:"event" validate:"required"`
	Message
}

type SubmissionJudgedEvent struct {
	SubmissionID string                 `json:"submission_id" validate:"required"`
	JudgerID     string                 `json:"judger_id"     validate:"required"`
	Status       types.SubmissionStatus `json:"status"        validate:"required"`
	Score        float64                `json:"score"`
	TestCases    int                    `json:"test_cases"`
}

type SubmissionJudged struct {
	Event SubmissionJudgedEvent `json:"event" validate:"required"`
	Message
}

type VerdictRejectedEvent struct {
	MsgType types.MsgType `json:"msg_type"`
	Reason  string        `json:"reason" validate:"required"`
}

type VerdictRejected struct {
	Event VerdictRejectedEvent `json:"event" validate:"required"`
	Message
}
