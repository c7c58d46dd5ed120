package cmds

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/types"
	workererrors "github.com/codearena/judge-api/internal/worker_errors"
)

var (
	resultFile   string
	resultStatus string
	resultLog    string
	resultTests  []string
	resultAck    bool
	resultDelay  time.Duration
)

// Parses "slug:STATUS[:time[:memory]]"
func parseTestResult(raw string) (types.JudgerTestResult, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return types.JudgerTestResult{}, fmt.Errorf("test %q: want slug:STATUS[:time[:memory]]", raw)
	}

	tr := types.JudgerTestResult{
		Slug:   parts[0],
		Status: types.TestCaseStatus(parts[1]),
	}
	if _, err := tr.Status.SubmissionStatus(); err != nil {
		return tr, fmt.Errorf("test %q: %w", raw, err)
	}

	if len(parts) > 2 {
		t, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return tr, fmt.Errorf("test %q time: %w", raw, err)
		}
		tr.Time = t
	}
	if len(parts) > 3 {
		m, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return tr, fmt.Errorf("test %q memory: %w", raw, err)
		}
		tr.Memory = m
	}

	return tr, nil
}

type resultOptions struct {
	file   string
	status string
	log    string
	tests  []string
	// --status, --test or --log given explicitly
	inline bool
}

// Either the YAML fixture or the inline flags describe the outcome, never both
func buildResult(ctx context.Context, opts resultOptions) (*types.JudgerResultYAML, error) {
	if opts.file != "" {
		if opts.inline {
			return nil, errors.New("--file cannot be combined with --status, --test or --log")
		}
		return types.ParseJudgerResultYAML(ctx, opts.file)
	}

	result := &types.JudgerResultYAML{
		Status:      types.ResultStatus(opts.status),
		Log:         opts.log,
		TestResults: make([]types.JudgerTestResult, 0, len(opts.tests)),
	}
	switch result.Status {
	case types.ResultStatusOK, types.ResultStatusCompilationError, types.ResultStatusInternalError:
	default:
		return nil, fmt.Errorf("unknown result status %q", opts.status)
	}

	for _, raw := range opts.tests {
		tr, err := parseTestResult(raw)
		if err != nil {
			return nil, err
		}
		result.TestResults = append(result.TestResults, tr)
	}

	return result, nil
}

var resultCmd = &cobra.Command{
	Use:   "result <submission-id>",
	Short: "Report the outcome of judging a submission",
	Example: `  mock_judger result 0195c1b4-7d3e-7000-8000-000000000001 -t 1:AC:12:2048 -t 2:WA:15:2048
  mock_judger result 0195c1b4-7d3e-7000-8000-000000000001 --status CE --log "main.cpp:3: error"
  mock_judger result 0195c1b4-7d3e-7000-8000-000000000001 --ack --delay 2s -f fixtures/accepted.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "resultCmd")
		defer span.End()

		submissionID := args[0]
		span.SetAttributes(attribute.String("submission.id", submissionID))

		flags := cmd.Flags()
		result, err := buildResult(ctx, resultOptions{
			file:   resultFile,
			status: resultStatus,
			log:    resultLog,
			tests:  resultTests,
			inline: flags.Changed("status") || flags.Changed("test") || flags.Changed("log"),
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid result")
			return workererrors.ExitErrorWrap(workererrors.ExitErrored, err)
		}

		if resultAck {
			if err = jq.Ack(ctx, submissionID); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to enqueue ack")
				return enqueueError(err)
			}
			logger.Logger.InfoContext(ctx, "enqueued ack", "submission_id", submissionID)
		}

		if resultDelay > 0 {
			span.AddEvent("simulating judging time")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(resultDelay):
			}
		}

		err = jq.Result(ctx, submissionID, result.Status, result.Log, result.TestResults)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to enqueue result")
			return enqueueError(err)
		}

		logger.Logger.InfoContext(ctx, "enqueued result",
			"submission_id", submissionID,
			"status", result.Status,
			"tests", len(result.TestResults),
		)
		span.SetStatus(codes.Ok, "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resultCmd)

	resultCmd.Flags().StringVarP(&resultFile, "file", "f", "", "YAML file describing the outcome")
	resultCmd.Flags().StringVarP(&resultStatus, "status", "s", string(types.ResultStatusOK), "Result status (OK, CE, IE)")
	resultCmd.Flags().StringVarP(&resultLog, "log", "l", "", "Judging log")
	resultCmd.Flags().StringArrayVarP(&resultTests, "test", "t", nil, "Test case as slug:STATUS[:time[:memory]], repeatable")
	resultCmd.Flags().BoolVarP(&resultAck, "ack", "a", false, "Send an ack first")
	resultCmd.Flags().DurationVarP(&resultDelay, "delay", "d", 0, "Wait between ack and result")
}
