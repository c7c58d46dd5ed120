package types

import (
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/codearena/judge-api/internal/types")

// Milliseconds since the unix epoch, as reported by judgers
type UnixMilli int64

func (u UnixMilli) Time() time.Time {
	return time.UnixMilli(int64(u)).UTC()
}
