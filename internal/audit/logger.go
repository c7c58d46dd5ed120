package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/types"
)

type Context struct {
	ContestID *string
	AuthorID  *string
}

func dispForStatus(status types.SubmissionStatus) Disposition {
	switch status {
	case types.SubmissionStatusAccepted:
		return DispositionGood
	case types.SubmissionStatusPending, types.SubmissionStatusJudging:
		return DispositionNeutral
	default:
		return DispositionBad
	}
}

func newMessage(c Context, t EventType, d Disposition) Message {
	return Message{
		ContestID:     c.ContestID,
		AuthorID:      c.AuthorID,
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		Disposition:   d,
		Type:          t,
		Timestamp:     types.UnixMilli(time.Now().UTC().UnixMilli()),
	}
}

func emit(event any, t EventType, args ...any) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error(
			"could not serialize audit event",
			append([]any{"event_type", t, "error", err}, args...)...,
		)
		return
	}

	fmt.Println(string(evtStr))
}

func LogJudgingStarted(c Context, submissionID string, judgerID string) {
	event := JudgingStarted{Message: newMessage(c, EvtJudgingStarted, DispositionNeutral)}

	event.Event.SubmissionID = submissionID
	event.Event.JudgerID = judgerID

	emit(event, EvtJudgingStarted, "submissionID", submissionID, "judgerID", judgerID)
}

func LogSubmissionJudged(
	c Context,
	submissionID string,
	judgerID string,
	status types.SubmissionStatus,
	score float64,
	testCases int,
) {
	event := SubmissionJudged{Message: newMessage(c, EvtSubmissionJudged, dispForStatus(status))}

	event.Event.SubmissionID = submissionID
	event.Event.JudgerID = judgerID
	event.Event.Status = status
	event.Event.Score = score
	event.Event.TestCases = testCases

	emit(event, EvtSubmissionJudged, "submissionID", submissionID, "status", status)
}

// A judger message that can never be applied and was dropped
func LogVerdictRejected(msgType types.MsgType, reason string) {
	event := VerdictRejected{Message: newMessage(Context{}, EvtVerdictRejected, DispositionBad)}

	event.Event.MsgType = msgType
	event.Event.Reason = reason

	emit(event, EvtVerdictRejected, "msgType", msgType)
}
