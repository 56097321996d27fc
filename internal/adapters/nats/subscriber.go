package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
// Consumers are ephemeral so that every process sees every event, which is
// what per-process cache invalidation needs.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// handle decodes a JSON message into T, runs handler and acks. Bad payloads
// are terminated rather than redelivered.
func handle[T any](ctx context.Context, handler func(context.Context, *T) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			slog.Warn("dropping malformed event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &v); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}
}

// SubscribeAddressEvents delivers new catalog.address.* events.
func (s *Subscriber) SubscribeAddressEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.AddressEvent) error) error {
	sub, err := s.js.Subscribe(SubjectAddressAll, handle(ctx, handler),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeRouteEvents delivers new routes.optimized events.
func (s *Subscriber) SubscribeRouteEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.RouteEvent) error) error {
	sub, err := s.js.Subscribe(SubjectRouteOptimized, handle(ctx, handler),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
