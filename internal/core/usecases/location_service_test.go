package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/location"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/core/usecases"
)

func TestLocationService_MirrorsIntoState(t *testing.T) {
	store := state.NewStore()
	svc := usecases.NewLocationService(location.NewTracker(), store)
	ctx := context.Background()

	if got := store.View().Location.Status; got != location.StatusNotRequested {
		t.Fatalf("initial status = %s", got)
	}

	if _, err := svc.Authorize(ctx, "granted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ReportFix(ctx, domain.GeoPoint{Lat: 35.0116, Lon: 135.7681}, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v := store.View()
	if v.Location.Status != location.StatusUpdated {
		t.Errorf("status = %s, want updated", v.Location.Status)
	}
	if v.Location.Position == nil || v.Location.Position.Lat != 35.0116 {
		t.Errorf("position = %+v", v.Location.Position)
	}
	if v.Location.FixedAt == nil || v.Location.FixedAt.IsZero() {
		t.Error("zero fix time should default to now")
	}
}

func TestLocationService_UnknownDecision(t *testing.T) {
	svc := usecases.NewLocationService(location.NewTracker(), state.NewStore())
	if _, err := svc.Authorize(context.Background(), "perhaps"); !errors.Is(err, location.ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}
}

func TestLocationService_FeedsSelection(t *testing.T) {
	store := state.NewStore()
	locSvc := usecases.NewLocationService(location.NewTracker(), store)
	repo := &mockCandidateRepo{points: scenarioPoints()}
	svc, err := usecases.NewDestinationService(repo, locSvc.Tracker(), nil, nil, store, defaultParams(), fixedRand(0.1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if _, err := svc.RequestSelection(ctx); !errors.Is(err, domain.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable before any fix, got %v", err)
	}

	locSvc.Authorize(ctx, "granted")
	locSvc.ReportFix(ctx, origin.Location, time.Now())
	if _, err := svc.RequestSelection(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	locSvc.ReportFailure(ctx, "no signal")
	if _, err := svc.RequestSelection(ctx); !errors.Is(err, domain.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable after failure, got %v", err)
	}
}

type captureSubscriber struct {
	authFn    func(ctx context.Context, decision string) error
	fixFn     func(ctx context.Context, p domain.GeoPoint, at time.Time) error
	failureFn func(ctx context.Context, reason string) error
	failOn    string
}

func (c *captureSubscriber) SubscribeAuthorization(_ context.Context, h func(ctx context.Context, decision string) error) error {
	if c.failOn == "authorization" {
		return errors.New("subscribe failed")
	}
	c.authFn = h
	return nil
}

func (c *captureSubscriber) SubscribeFixes(_ context.Context, h func(ctx context.Context, p domain.GeoPoint, at time.Time) error) error {
	if c.failOn == "fixes" {
		return errors.New("subscribe failed")
	}
	c.fixFn = h
	return nil
}

func (c *captureSubscriber) SubscribeFailures(_ context.Context, h func(ctx context.Context, reason string) error) error {
	c.failureFn = h
	return nil
}

func TestLocationService_Listen(t *testing.T) {
	store := state.NewStore()
	svc := usecases.NewLocationService(location.NewTracker(), store)
	sub := &captureSubscriber{}
	ctx := context.Background()

	if err := svc.Listen(ctx, sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sub.fixFn(ctx, domain.GeoPoint{Lat: 35, Lon: 135}, time.Now()); !errors.Is(err, location.ErrNotAuthorized) {
		t.Fatalf("fix before grant: expected ErrNotAuthorized, got %v", err)
	}
	if err := sub.authFn(ctx, "granted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sub.fixFn(ctx, domain.GeoPoint{Lat: 35, Lon: 135}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.View().Location.Status; got != location.StatusUpdated {
		t.Errorf("status = %s, want updated", got)
	}

	if err := sub.failureFn(ctx, "timeout"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.Tracker().Current(); ok {
		t.Error("position should be unusable after a failure")
	}
}

func TestLocationService_ListenSubscribeError(t *testing.T) {
	svc := usecases.NewLocationService(location.NewTracker(), state.NewStore())
	err := svc.Listen(context.Background(), &captureSubscriber{failOn: "fixes"})
	if err == nil {
		t.Fatal("expected error")
	}
}
