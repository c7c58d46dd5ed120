// Package livefeed fans submission updates out to connected websocket clients.
//
// Delivery is best-effort: a client that is disconnected or too slow misses
// updates and is expected to re-fetch the submission.
package livefeed

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"

	"github.com/codearena/judge-api/internal/types"
)

const name string = "github.com/codearena/judge-api/cmd/server/internal/livefeed"

var tracer = otel.Tracer(name)
var meter = otel.Meter(name)

type EventType string

const EventSubmissionUpdate EventType = "submission_update"

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

func SubmissionUpdate(snapshot types.SubmissionSnapshot) Event {
	return Event{Type: EventSubmissionUpdate, Payload: snapshot}
}

//go:generate mockgen -destination ./mock/mock.go -package mock . Publisher

type Publisher interface {
	// Must not block on slow listeners
	Publish(ctx context.Context, event Event) error
}

func encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}
