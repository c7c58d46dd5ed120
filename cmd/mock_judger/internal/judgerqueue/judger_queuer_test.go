package judgerqueue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/codearena/judge-api/cmd/mock_judger/internal/judgerqueue"
	mockqueue "github.com/codearena/judge-api/internal/queue/mock"
	"github.com/codearena/judge-api/internal/types"
)

var judgerID = "judger-7"
var submissionID = "0195c1b4-7d3e-7000-8000-000000000001"

func TestAck(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	queuer := mockqueue.NewMockQueuer(ctrl)

	expected := types.JudgerMsgAck{
		JudgerMsg: types.JudgerMsg{Type: types.MsgTypeAck},
		ID:        submissionID,
		JudgerID:  judgerID,
	}

	queuer.EXPECT().Enqueue(gomock.Any(), expected).Times(1)

	jq := judgerqueue.NewJudgerQueue(judgerID, queuer)
	err := jq.Ack(ctx, submissionID)
	assert.NoError(t, err, "failed to queue ack")
}

func TestResult(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	queuer := mockqueue.NewMockQueuer(ctrl)

	tests := []types.JudgerTestResult{
		{Slug: "1", Status: types.TestCaseStatusAccepted, Time: 3, Memory: 1024},
		{Slug: "2", Status: types.TestCaseStatusWrongAnswer, Time: 4, Memory: 1024},
	}

	expected := types.JudgerMsgResult{
		JudgerMsg:   types.JudgerMsg{Type: types.MsgTypeResult},
		ID:          submissionID,
		JudgerID:    judgerID,
		Log:         "ok",
		Status:      types.ResultStatusOK,
		TestResults: tests,
	}

	queuer.EXPECT().Enqueue(gomock.Any(), expected).Times(1)

	jq := judgerqueue.NewJudgerQueue(judgerID, queuer)
	err := jq.Result(ctx, submissionID, types.ResultStatusOK, "ok", tests)
	assert.NoError(t, err, "failed to queue result")
}

func TestResultNoTests(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	queuer := mockqueue.NewMockQueuer(ctrl)

	expected := types.JudgerMsgResult{
		JudgerMsg:   types.JudgerMsg{Type: types.MsgTypeResult},
		ID:          submissionID,
		JudgerID:    judgerID,
		Log:         "main.cpp:1: error",
		Status:      types.ResultStatusCompilationError,
		TestResults: []types.JudgerTestResult{},
	}

	queuer.EXPECT().Enqueue(gomock.Any(), expected).Times(1)

	jq := judgerqueue.NewJudgerQueue(judgerID, queuer)
	err := jq.Result(ctx, submissionID, types.ResultStatusCompilationError, "main.cpp:1: error", nil)
	assert.NoError(t, err)
}

func TestHeartbeatEnqueueFailure(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	queuer := mockqueue.NewMockQueuer(ctrl)

	expected := types.JudgerMsgHeartbeat{
		JudgerMsg: types.JudgerMsg{Type: types.MsgTypeHeartbeat},
		JudgerID:  judgerID,
		Timestamp: types.UnixMilli(1700000000000),
	}

	boom := errors.New("queue down")
	queuer.EXPECT().Enqueue(gomock.Any(), expected).Return(boom).Times(1)

	jq := judgerqueue.NewJudgerQueue(judgerID, queuer)
	err := jq.Heartbeat(ctx, types.UnixMilli(1700000000000))
	assert.ErrorIs(t, err, boom)
}
