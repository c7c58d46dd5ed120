package cmds

import (
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/codearena/judge-api/internal/logger"
)

var ackCmd = &cobra.Command{
	Use:   "ack <submission-id>",
	Short: "Report that judging of a submission has started",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "ackCmd")
		defer span.End()

		submissionID := args[0]
		span.SetAttributes(attribute.String("submission.id", submissionID))

		if err := jq.Ack(ctx, submissionID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to enqueue ack")
			return enqueueError(err)
		}

		logger.Logger.InfoContext(ctx, "enqueued ack", "submission_id", submissionID)
		span.SetStatus(codes.Ok, "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ackCmd)
}
