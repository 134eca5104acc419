package natsadapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Subscriber implements ports.LocationSubscriber over core NATS. Location
// events are ephemeral, so there is no durable consumer.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
	now  func() time.Time
}

// NewSubscriber creates a subscriber sharing conn.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn, now: time.Now}
}

func (s *Subscriber) SubscribeAuthorization(ctx context.Context, handler func(ctx context.Context, decision string) error) error {
	return s.subscribe(SubjectAuthorization, func(data []byte) error {
		decision, err := decodeAuthorization(data)
		if err != nil {
			return err
		}
		return handler(ctx, decision)
	})
}

func (s *Subscriber) SubscribeFixes(ctx context.Context, handler func(ctx context.Context, p domain.GeoPoint, at time.Time) error) error {
	return s.subscribe(SubjectFix, func(data []byte) error {
		p, at, err := decodeFix(data, s.now)
		if err != nil {
			return err
		}
		return handler(ctx, p, at)
	})
}

func (s *Subscriber) SubscribeFailures(ctx context.Context, handler func(ctx context.Context, reason string) error) error {
	return s.subscribe(SubjectFailure, func(data []byte) error {
		return handler(ctx, decodeFailure(data))
	})
}

func (s *Subscriber) subscribe(subject string, fn func(data []byte) error) error {
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := fn(msg.Data); err != nil {
			slog.Warn("location event rejected", "subject", subject, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes from every subject.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
