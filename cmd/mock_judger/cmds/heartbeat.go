package cmds

import (
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"

	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/types"
)

var (
	heartbeatInterval time.Duration
	heartbeatCount    int
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Send liveness heartbeats",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "heartbeatCmd")
		defer span.End()

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for sent := 0; heartbeatCount <= 0 || sent < heartbeatCount; sent++ {
			if sent > 0 {
				select {
				case <-ctx.Done():
					span.SetStatus(codes.Ok, "interrupted")
					return nil
				case <-ticker.C:
				}
			}

			now := types.UnixMilli(time.Now().UnixMilli())
			if err := jq.Heartbeat(ctx, now); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to enqueue heartbeat")
				return enqueueError(err)
			}
			logger.Logger.DebugContext(ctx, "enqueued heartbeat", "timestamp", now)
		}

		span.SetStatus(codes.Ok, "")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(heartbeatCmd)

	heartbeatCmd.Flags().DurationVarP(&heartbeatInterval, "interval", "i", 10*time.Second, "Time between heartbeats")
	heartbeatCmd.Flags().IntVarP(&heartbeatCount, "count", "n", 1, "Heartbeats to send, 0 runs until interrupted")
}
