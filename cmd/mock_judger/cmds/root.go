package cmds

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/codearena/judge-api/cmd/mock_judger/internal/judgerqueue"
	"github.com/codearena/judge-api/internal/config"
	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/queue"
	workererrors "github.com/codearena/judge-api/internal/worker_errors"
)

var tracer = otel.Tracer("github.com/codearena/judge-api/mock_judger/cmds")

var (
	judgerID string
	jq       *judgerqueue.JudgerQueuer
	rdb      *redis.Client
)

var rootCmd = &cobra.Command{
	Use:   "mock_judger",
	Short: "Pushes judger messages onto the verdict queue",
	Long: `Pretends to be a judger. Every subcommand enqueues messages exactly
as a real judger would, using the same queue configuration as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "connectQueue")
		defer span.End()

		cfg, err := config.GetConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return workererrors.ExitErrorWrap(workererrors.ExitSetup, fmt.Errorf("failed to load config: %w", err))
		}

		if cfg.Queue.Backend == config.QueueBackendRedis {
			rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}

		qr, err := queue.FromConfig(ctx, cfg.Queue, rdb)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create queuer")
			return workererrors.ExitErrorWrap(workererrors.ExitSetup, err)
		}

		logger.Logger.DebugContext(ctx, "connected to verdict queue",
			"backend", cfg.Queue.Backend, "judger_id", judgerID)

		jq = judgerqueue.NewJudgerQueue(judgerID, qr)
		span.SetStatus(codes.Ok, "")
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	},
}

func enqueueError(err error) error {
	return workererrors.ExitErrorWrap(workererrors.ExitEnqueue, err)
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&judgerID, "judger-id", "j", "mock-judger", "Judger ID")
}
