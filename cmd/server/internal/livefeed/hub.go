package livefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/codearena/judge-api/internal/logger"
)

var ErrHubFull = errors.New("live hub broadcast buffer is full")

const broadcastBuffer = 256

type Hub struct {
	log        *slog.Logger
	connected  metric.Int64UpDownCounter
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	count      atomic.Int64
}

var _ Publisher = (*Hub)(nil)

func NewHub() (*Hub, error) {
	connected, err := meter.Int64UpDownCounter(
		"judge.live.clients",
		metric.WithDescription("Websocket clients connected to the live feed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create live clients gauge: %w", err)
	}

	return &Hub{
		log:        logger.Named("livefeed"),
		connected:  connected,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}, nil
}

// Serves the hub until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(ctx, client)
			}
			h.log.InfoContext(ctx, "live hub stopped")
			return nil
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Add(1)
			h.connected.Add(ctx, 1)
			h.log.DebugContext(ctx, "live client registered",
				"remote", client.remote, "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(ctx, client)
				h.log.DebugContext(ctx, "live client unregistered",
					"remote", client.remote, "clients", len(h.clients))
			}
		case data := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					h.log.WarnContext(ctx, "live client too slow, disconnecting", "remote", client.remote)
					h.drop(ctx, client)
				}
			}
		}
	}
}

func (h *Hub) drop(ctx context.Context, client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
	h.connected.Add(ctx, -1)
}

// Number of registered clients
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Queues an already encoded event for every local client
func (h *Hub) Broadcast(data []byte) error {
	select {
	case h.broadcast <- data:
		return nil
	default:
		return ErrHubFull
	}
}

func (h *Hub) Publish(ctx context.Context, event Event) error {
	_, span := tracer.Start(ctx, "Hub.Publish")
	defer span.End()

	data, err := encode(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode event")
		return err
	}

	if err := h.Broadcast(data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to queue event")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "queued event")
	return nil
}
