package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/codearena/judge-api/cmd/mock_judger/cmds"
	"github.com/codearena/judge-api/internal/logger"
	oteljudgeapi "github.com/codearena/judge-api/internal/otel"
	workererrors "github.com/codearena/judge-api/internal/worker_errors"
)

var tracer = otel.Tracer("github.com/codearena/judge-api/mock_judger")

func runApp(ctx context.Context) int {
	useOTLP, err := strconv.ParseBool(os.Getenv("USE_OTLP"))
	if err != nil {
		useOTLP = false
	}

	shutdown, err := oteljudgeapi.SetupOTelSDK(ctx, "mock-judger", useOTLP)
	if err != nil {
		logger.Logger.Warn("failed to setup otel sdk", "error", err)
	} else {
		defer func() {
			if fail := shutdown(context.Background()); fail != nil {
				logger.Logger.Warn("no clean shutdown for otel", "error", fail)
			}
		}()
	}

	// link to whoever launched us, e.g. a load test driver
	carrier := oteljudgeapi.CreateEnvCarrier()
	extractedContext := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
	ctx, span := tracer.Start(
		ctx,
		"MockJudger",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(extractedContext)),
	)
	defer span.End()

	err = cmds.Execute(ctx)
	if err != nil {
		logger.Logger.Error("error executing subcommands", "error", err)

		var ee workererrors.ExitError
		if errors.As(err, &ee) {
			return ee.Code
		}
		return workererrors.ExitErrored
	}

	return 0
}

func main() {
	logger.InitSlog()
	logger.LogLevel.Set(slog.LevelDebug)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := runApp(ctx)
	cancel()

	os.Exit(code)
}
