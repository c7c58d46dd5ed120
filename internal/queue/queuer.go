package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/codearena/judge-api/internal/queue",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Queuer,MessageHandler

// Durable at-least-once channel for judger messages
type Queuer interface {
	// May block while queuing data
	Enqueue(ctx context.Context, message any) error
	// Blocks until one message has been handed to handler or ctx is done.
	//
	// `timeout` bounds the handler. If handler returns a poison error the message is not
	// redelivered, any other error leaves it for redelivery. A backend that makes the
	// message visible again right away returns an error wrapping [ErrRequeued].
	Dequeue(ctx context.Context, timeout time.Duration, handler MessageHandler) error
}

// The handler failed and the message went straight back onto the queue
var ErrRequeued = errors.New("message requeued")

type MessageHandler interface {
	Handle(ctx context.Context, message []byte) error
}

// Mark a message as unprocessable. It will not be requeued.
type PoisonError struct {
	Err error
}

func (p PoisonError) Error() string {
	return fmt.Sprintf("Poisoned message: %v", p.Err)
}

func (p PoisonError) Unwrap() error {
	return p.Err
}

func WrapPoisonError(err error) error {
	return &PoisonError{Err: err}
}

func IsPoison(err error) bool {
	var pe *PoisonError
	return errors.As(err, &pe)
}
