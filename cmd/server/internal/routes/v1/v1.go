package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/codearena/judge-api/cmd/server/internal/livefeed"
	servermiddleware "github.com/codearena/judge-api/cmd/server/internal/middleware"
	"github.com/codearena/judge-api/cmd/server/internal/models"
	"github.com/codearena/judge-api/cmd/server/internal/ratelimit"
	"github.com/codearena/judge-api/internal/config"
	"github.com/codearena/judge-api/internal/logger"
)

const name = "github.com/codearena/judge-api/cmd/server/internal/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	DB     *gorm.DB
	hub    *livefeed.Hub
	config *config.Config
	// nil disables rate limiting
	rdb *redis.Client
}

func NewRedisLimiter(
	rdb *redis.Client,
	limiterKey string,
	perMinute int64,
	failOpen bool,
) middleware.RateLimiterConfig {
	logger.Logger.Debug("setting up rate limiter with redis", "limiter", limiterKey, "perMinute", perMinute)

	store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	})

	return middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, _ error) error {
			return context.JSON(http.StatusForbidden, nil)
		},
		DenyHandler: func(context echo.Context, _ string, _ error) error {
			return context.JSON(http.StatusTooManyRequests, nil)
		},
	}
}

func NewHandler(
	db *gorm.DB,
	hub *livefeed.Hub,
	cfg *config.Config,
	rdb *redis.Client,
) Handler {
	return Handler{
		DB:     db,
		hub:    hub,
		config: cfg,
		rdb:    rdb,
	}
}

func (h *Handler) standingsMiddleware(middlewareHandler *servermiddleware.Handler) []echo.MiddlewareFunc {
	mw := []echo.MiddlewareFunc{}

	rl := h.config.RateLimit
	if h.rdb != nil && rl != nil && rl.StandingsPerMinute > 0 {
		mw = append(mw, middleware.RateLimiterWithConfig(
			NewRedisLimiter(h.rdb, "standings", rl.StandingsPerMinute, rl.FailOpen),
		))
	}

	return append(mw, servermiddleware.PopulateFromIDParam[models.Contest](
		middlewareHandler,
		"contest_id",
		"contest",
	))
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	if rl := h.config.RateLimit; h.rdb == nil || rl == nil || rl.StandingsPerMinute <= 0 {
		logger.Logger.Warn("not configured to have a standings rate limit")
	}

	v1Group := e.Group("/v1")

	v1Group.GET(
		"/submission/:submission_id/",
		h.SubmissionStatus,
	)
	v1Group.GET(
		"/contest/:contest_id/standings/",
		h.Standings,
		h.standingsMiddleware(middlewareHandler)...,
	)
	v1Group.GET("/live/", h.hub.ServeWS)

	// contest UI path
	e.GET(
		"/contest/:contest_id/standings/",
		h.Standings,
		h.standingsMiddleware(middlewareHandler)...,
	)
}
