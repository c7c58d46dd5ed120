package types

type (
	// Every message on the verdict queue carries its kind next to the payload fields
	JudgerMsg struct {
		Type MsgType `json:"type" validate:"required"`
	}

	JudgerMsgAck struct {
		JudgerMsg
		ID       string `json:"id"        validate:"required,uuid"`
		JudgerID string `json:"judger_id" validate:"required,notblank"`
	}

	JudgerTestResult struct {
		Slug   string         `json:"slug"   yaml:"slug"   validate:"required,notblank"`
		Status TestCaseStatus `json:"status" yaml:"status" validate:"required"`
		// milliseconds
		Time float64 `json:"time" yaml:"time" validate:"gte=0"`
		// kilobytes
		Memory float64 `json:"memory" yaml:"memory" validate:"gte=0"`
	}

	JudgerMsgResult struct {
		JudgerMsg
		ID          string             `json:"id"           validate:"required,uuid"`
		JudgerID    string             `json:"judger_id"    validate:"required,notblank"`
		Log         string             `json:"log"`
		Status      ResultStatus       `json:"status"       validate:"required"`
		TestResults []JudgerTestResult `json:"test_results" validate:"dive"`
	}

	JudgerMsgHeartbeat struct {
		JudgerMsg
		JudgerID  string    `json:"judger_id" validate:"required,notblank"`
		Timestamp UnixMilli `json:"timestamp" validate:"required"`
	}

	MsgType string
)

const (
	MsgTypeAck       MsgType = "ack"
	MsgTypeResult    MsgType = "result"
	MsgTypeHeartbeat MsgType = "heartbeat"
)

func NewJudgerMsgAck(submissionID string, judgerID string) JudgerMsgAck {
	return JudgerMsgAck{
		JudgerMsg: JudgerMsg{Type: MsgTypeAck},
		ID:        submissionID,
		JudgerID:  judgerID,
	}
}

func NewJudgerMsgResult(
	submissionID string,
	judgerID string,
	status ResultStatus,
	log string,
	testResults []JudgerTestResult,
) JudgerMsgResult {
	if testResults == nil {
		testResults = []JudgerTestResult{}
	}
	return JudgerMsgResult{
		JudgerMsg:   JudgerMsg{Type: MsgTypeResult},
		ID:          submissionID,
		JudgerID:    judgerID,
		Log:         log,
		Status:      status,
		TestResults: testResults,
	}
}

func NewJudgerMsgHeartbeat(judgerID string, timestamp UnixMilli) JudgerMsgHeartbeat {
	return JudgerMsgHeartbeat{
		JudgerMsg: JudgerMsg{Type: MsgTypeHeartbeat},
		JudgerID:  judgerID,
		Timestamp: timestamp,
	}
}
