package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/location"
	"github.com/kyotoapp/nextdest/internal/core/ports"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/pkg/metrics"
)

// LocationService feeds location source events into the tracker and mirrors
// every transition into the state container. HTTP and NATS share it.
type LocationService struct {
	tracker *location.Tracker
	now     func() time.Time
}

// NewLocationService wires tracker transitions into store.
func NewLocationService(tracker *location.Tracker, store *state.Store) *LocationService {
	tracker.OnChange(func(snap location.Snapshot) {
		metrics.LocationTransitions.WithLabelValues(string(snap.Status)).Inc()
		store.SetLocation(snap)
	})
	store.SetLocation(tracker.Snapshot())
	return &LocationService{tracker: tracker, now: time.Now}
}

// Tracker exposes the underlying tracker as a ports.PositionReader.
func (s *LocationService) Tracker() *location.Tracker { return s.tracker }

func (s *LocationService) RequestAuthorization(ctx context.Context) location.Snapshot {
	return s.tracker.RequestAuthorization()
}

// Authorize applies a decision given as text, e.g. "granted" or "denied".
func (s *LocationService) Authorize(ctx context.Context, decision string) (location.Snapshot, error) {
	auth, err := location.ParseDecision(decision)
	if err != nil {
		return location.Snapshot{}, err
	}
	snap, err := s.tracker.Authorize(auth)
	if err != nil {
		return snap, err
	}
	slog.InfoContext(ctx, "location authorization changed", "authorization", snap.Authorization, "status", snap.Status)
	return snap, nil
}

// ReportFix records a fix. A zero time means now.
func (s *LocationService) ReportFix(ctx context.Context, p domain.GeoPoint, at time.Time) (location.Snapshot, error) {
	if at.IsZero() {
		at = s.now()
	}
	snap, err := s.tracker.ReportFix(p, at)
	switch {
	case err == nil:
		metrics.LocationFixes.WithLabelValues("accepted").Inc()
	case errors.Is(err, location.ErrNotAuthorized):
		metrics.LocationFixes.WithLabelValues("unauthorized").Inc()
	default:
		metrics.LocationFixes.WithLabelValues("invalid").Inc()
	}
	if err != nil {
		slog.DebugContext(ctx, "location fix rejected", "error", err, "lat", p.Lat, "lon", p.Lon)
	}
	return snap, err
}

func (s *LocationService) ReportFailure(ctx context.Context, reason string) location.Snapshot {
	slog.WarnContext(ctx, "location update failed", "reason", reason)
	return s.tracker.ReportFailure(reason)
}

func (s *LocationService) Snapshot() location.Snapshot {
	return s.tracker.Snapshot()
}

// Listen subscribes the service to a broker-backed location source.
func (s *LocationService) Listen(ctx context.Context, sub ports.LocationSubscriber) error {
	if err := sub.SubscribeAuthorization(ctx, func(ctx context.Context, decision string) error {
		_, err := s.Authorize(ctx, decision)
		return err
	}); err != nil {
		return fmt.Errorf("subscribe authorization: %w", err)
	}
	if err := sub.SubscribeFixes(ctx, func(ctx context.Context, p domain.GeoPoint, at time.Time) error {
		_, err := s.ReportFix(ctx, p, at)
		return err
	}); err != nil {
		return fmt.Errorf("subscribe fixes: %w", err)
	}
	if err := sub.SubscribeFailures(ctx, func(ctx context.Context, reason string) error {
		s.ReportFailure(ctx, reason)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribe failures: %w", err)
	}
	return nil
}
