package ports

import (
	"context"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAddressEvent(ctx context.Context, ev *domain.AddressEvent) error
	PublishRouteEvent(ctx context.Context, ev *domain.RouteEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAddressEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.AddressEvent) error) error
	SubscribeRouteEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.RouteEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
