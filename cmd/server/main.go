package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	sloggorm "github.com/orandin/slog-gorm"
	"github.com/redis/go-redis/v9"
	otellib "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"

	"github.com/codearena/judge-api/cmd/server/internal/ingress"
	"github.com/codearena/judge-api/cmd/server/internal/livefeed"
	servermiddleware "github.com/codearena/judge-api/cmd/server/internal/middleware"
	"github.com/codearena/judge-api/cmd/server/internal/migrations"
	"github.com/codearena/judge-api/cmd/server/internal/routes"
	routesv1 "github.com/codearena/judge-api/cmd/server/internal/routes/v1"
	"github.com/codearena/judge-api/internal/config"
	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/otel"
	"github.com/codearena/judge-api/internal/queue"
)

const name string = "github.com/codearena/judge-api/server"

const serviceName = "judge-api"

var tracer = otellib.Tracer(name)

type server struct {
	router       *echo.Echo
	config       *config.Config
	db           *gorm.DB
	rdb          *redis.Client
	queuer       queue.Queuer
	hub          *livefeed.Hub
	ingress      *ingress.Handler
	otelShutdown func(context.Context) error
	// closed once Start has returned
	stopped chan struct{}
}

func newGormLogger(cfg *config.Config) *sloggorm.Logger {
	gormLogger := slog.New(logger.Handler)

	opts := []sloggorm.Option{
		sloggorm.WithHandler(gormLogger.Handler()),
		sloggorm.SetLogLevel(sloggorm.DefaultLogType, slog.Level(cfg.Logging.Gorm.Level)),
	}
	if cfg.Logging.Gorm.TraceQueries {
		opts = append(opts, sloggorm.WithTraceAll())
	}

	return sloggorm.New(opts...)
}

func newQueuer(ctx context.Context, cfg *config.QueueConfig, rdb *redis.Client) (queue.Queuer, error) {
	ctx, span := tracer.Start(ctx, "newQueuer")
	defer span.End()

	qr, err := queue.FromConfig(ctx, cfg, rdb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create queuer")
		return nil, err
	}

	// only the consumer may move stranded messages back
	if rq, ok := qr.(*queue.RedisQueuer); ok {
		recovered, err := rq.Recover(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to recover stranded messages")
			return nil, fmt.Errorf("failed to recover stranded messages: %w", err)
		}
		if recovered > 0 {
			logger.Logger.WarnContext(ctx, "requeued messages left over by a previous consumer",
				"count", recovered, "key", cfg.Redis.Key)
		}
	}

	span.SetStatus(codes.Ok, "")
	return qr, nil
}

func initServer(ctx context.Context) (*server, error) {
	server := &server{stopped: make(chan struct{})}

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server config: %w", err)
	}
	server.config = cfg

	shutdownOTel, err := otel.SetupOTelSDK(ctx, serviceName, cfg.Logging.UseOTLP)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OTEL SDK: %w", err)
	}
	defer func() {
		// Something failed to initialize, make sure everything gets flushed to the server
		if server.otelShutdown == nil {
			otelShutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				time.Second*time.Duration(cfg.GracefulShutdownSecs),
			)
			defer cancel()

			if err = shutdownOTel(otelShutdownCtx); err != nil {
				logger.Logger.Error("failed to flush otel data", "error", err)
			}
		}
	}()

	ctx, span := tracer.Start(ctx, "initServer")
	defer span.End()

	logger.LogLevel.Set(slog.Level(cfg.Logging.App.Level))

	span.AddEvent("initialized gorm logging")

	db, err := gorm.Open(
		postgres.Open(cfg.PostgresDSN()),
		&gorm.Config{Logger: newGormLogger(cfg), TranslateError: true},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire underlying database connection")
		return nil, fmt.Errorf("failed to acquire underlying database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnectionTTL)

	span.AddEvent("initialized database connection")

	if err = db.Use(gormtracing.NewPlugin()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to add otel plugin to gorm")
		return nil, fmt.Errorf("failed to add otel plugin to gorm: %w", err)
	}

	if err = migrations.Up(ctx, db); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to preform database migrations")
		return nil, fmt.Errorf("failed to perform database migrations: %w", err)
	}

	span.AddEvent("migrated database to latest version")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	qr, err := newQueuer(ctx, cfg.Queue, rdb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set up verdict queue")
		return nil, fmt.Errorf("failed to set up verdict queue: %w", err)
	}

	span.AddEvent("initialized verdict queue")

	hub, err := livefeed.NewHub()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create live hub")
		return nil, err
	}

	var publisher livefeed.Publisher = hub
	if cfg.Live.Relay {
		publisher = livefeed.NewRedisPublisher(rdb, cfg.Live.Channel)
	}

	ingressHandler, err := ingress.NewHandler(db, publisher)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create ingress handler")
		return nil, err
	}

	e, err := routes.BuildEcho(logger.Logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error building router")
		return nil, fmt.Errorf("error building router: %w", err)
	}

	span.AddEvent("created echo router")

	v1Handler := routesv1.NewHandler(db, hub, cfg, rdb)
	middlewareHandler := servermiddleware.Handler{DB: db}
	v1Handler.AddRoutes(e, &middlewareHandler)

	server.otelShutdown = shutdownOTel
	server.router = e
	server.db = db
	server.rdb = rdb
	server.queuer = qr
	server.hub = hub
	server.ingress = ingressHandler

	return server, nil
}

// Runs the router, the verdict consumer and the live hub until ctx is done
// or one of them fails
func (s *server) Start(ctx context.Context) error {
	defer close(s.stopped)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.hub.Run(gctx)
	})

	if s.config.Live.Relay {
		g.Go(func() error {
			return livefeed.Relay(gctx, s.rdb, s.config.Live.Channel, s.hub)
		})
	}

	g.Go(func() error {
		ingress.MonitorVerdictQueue(gctx, s.queuer, s.ingress, s.config.Queue.HandlerTimeout)
		return nil
	})

	g.Go(func() error {
		logger.Logger.Info("Starting services...", "listen", s.config.ListenAddress)

		err := s.router.Start(s.config.ListenAddress)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (s *server) Shutdown() error {
	var errs error

	ctx, cancelTimeout := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(s.config.GracefulShutdownSecs),
	)
	defer cancelTimeout()

	if err := s.router.Shutdown(ctx); err != nil {
		errs = errors.Join(errs, err)
	}

	// the consumer settles its in-flight message before stopping
	select {
	case <-s.stopped:
	case <-ctx.Done():
		errs = errors.Join(errs, fmt.Errorf("services did not stop in time: %w", ctx.Err()))
	}

	if err := s.rdb.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close redis client: %w", err))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		errs = errors.Join(errs, sqlDB.Close())
	}

	if s.otelShutdown != nil {
		errs = errors.Join(errs, s.otelShutdown(ctx))
	}

	return errs
}

func main() {
	ctx, cancelSignal := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	logger.InitSlog()

	server, err := initServer(ctx)
	if err != nil {
		logger.Logger.Error(err.Error())
		cancelSignal()
		os.Exit(1)
	}

	errch := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Got shutdown signal!")
		errch <- server.Shutdown()
		close(errch)
	}()

	if err := server.Start(ctx); err != nil {
		logger.Logger.Error(err.Error())
		cancelSignal()
		os.Exit(1)
	}

	if err := <-errch; err != nil {
		logger.Logger.Error("Error shutting down server", "error", err)
	}

	cancelSignal()
}
