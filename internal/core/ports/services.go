package ports

import (
	"context"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSelection(ctx context.Context, sel *domain.Selection) error
}

// LocationSubscriber delivers location source events from a message broker.
type LocationSubscriber interface {
	SubscribeAuthorization(ctx context.Context, handler func(ctx context.Context, decision string) error) error
	SubscribeFixes(ctx context.Context, handler func(ctx context.Context, p domain.GeoPoint, at time.Time) error) error
	SubscribeFailures(ctx context.Context, handler func(ctx context.Context, reason string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
