package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Publisher implements ports.EventPublisher. Selections go to a JetStream
// stream; location events are plain core NATS messages.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the destinations stream
// exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "DESTINATIONS",
		Subjects:  []string{"destination.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// NewLocationPublisher returns a publisher for location events only. It does
// not touch JetStream.
func NewLocationPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) PublishSelection(ctx context.Context, sel *domain.Selection) error {
	if p.js == nil {
		return fmt.Errorf("publish selection: jetstream not enabled")
	}
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectSelected, data, nats.Context(ctx), nats.MsgId(sel.Point.ID+"@"+sel.SelectedAt.Format(time.RFC3339Nano)))
	return err
}

func (p *Publisher) PublishAuthorization(ctx context.Context, decision string) error {
	return p.publishJSON(SubjectAuthorization, AuthorizationMessage{Decision: decision})
}

func (p *Publisher) PublishFix(ctx context.Context, pt domain.GeoPoint, at time.Time) error {
	return p.publishJSON(SubjectFix, FixMessage{Lat: pt.Lat, Lon: pt.Lon, Time: at})
}

func (p *Publisher) PublishFailure(ctx context.Context, reason string) error {
	return p.publishJSON(SubjectFailure, FailureMessage{Reason: reason})
}

func (p *Publisher) publishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
