package routes

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	servermiddleware "github.com/codearena/judge-api/cmd/server/internal/middleware"
	"github.com/codearena/judge-api/internal/validator"
)

const serviceName = "judge-api"

func BuildEcho(logger *slog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	validate := validator.Create()
	e.Validator = &validate

	e.Pre(middleware.AddTrailingSlash())

	e.Use(
		otelecho.Middleware(serviceName),
		slogecho.NewWithConfig(logger, slogecho.Config{
			// connection is hijacked by the websocket upgrade
			Filters: []slogecho.Filter{slogecho.IgnorePath("/v1/live/")},
		}),
		servermiddleware.Time("time"),
	)

	e.GET("/health/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	return e, nil
}
