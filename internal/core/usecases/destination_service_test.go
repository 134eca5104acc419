package usecases_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/ports"
	"github.com/kyotoapp/nextdest/internal/core/selector"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/core/usecases"
)

// --- Mocks ---

type mockCandidateRepo struct {
	mu       sync.Mutex
	points   []domain.Point
	listFn   func(ctx context.Context) ([]domain.Point, error)
	appendFn func(ctx context.Context, p *domain.Point) error
}

func (m *mockCandidateRepo) List(ctx context.Context) ([]domain.Point, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Point(nil), m.points...), nil
}

func (m *mockCandidateRepo) Append(ctx context.Context, p *domain.Point) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, *p)
	return nil
}

func (m *mockCandidateRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points), nil
}

type mockPosition struct {
	pos *domain.Position
}

func (m *mockPosition) Current() (domain.Position, bool) {
	if m.pos == nil {
		return domain.Position{}, false
	}
	return *m.pos, true
}

type mockPublisher struct {
	publishFn func(ctx context.Context, sel *domain.Selection) error
	published []*domain.Selection
}

func (m *mockPublisher) PublishSelection(ctx context.Context, sel *domain.Selection) error {
	m.published = append(m.published, sel)
	if m.publishFn != nil {
		return m.publishFn(ctx, sel)
	}
	return nil
}

type mockCache struct {
	data      map[string][]byte
	deleted   []string
	deleteErr error
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.data, key)
	return nil
}

func defaultParams() selector.Params { return selector.DefaultParams() }

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

// --- Helpers ---

var origin = domain.Position{Location: domain.GeoPoint{Lat: 35.0, Lon: 135.45}, FixedAt: time.Now()}

func scenarioPoints() []domain.Point {
	return []domain.Point{
		domain.NewPoint("A", 35.0221, 135.4345),
		domain.NewPoint("B", 34.5940, 135.4704),
	}
}

func newService(t *testing.T, repo *mockCandidateRepo, pos *domain.Position, pub ports.EventPublisher, cache ports.CacheService, r float64) (*usecases.DestinationService, *state.Store) {
	t.Helper()
	store := state.NewStore()
	svc, err := usecases.NewDestinationService(repo, &mockPosition{pos: pos}, cache, pub, store, selector.DefaultParams(), fixedRand(r))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc, store
}

// --- Tests ---

func TestNewDestinationService_RejectsBadParams(t *testing.T) {
	_, err := usecases.NewDestinationService(&mockCandidateRepo{}, &mockPosition{}, nil, nil, state.NewStore(),
		selector.Params{AdjustmentFactor: math.NaN(), DistanceExponent: 1}, fixedRand(0))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRequestSelection_Scenario(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	pub := &mockPublisher{}
	svc, store := newService(t, repo, &origin, pub, nil, 0.5)

	sel, err := svc.RequestSelection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Point.Name != "A" {
		t.Errorf("expected A for r=0.5, got %s", sel.Point.Name)
	}
	if len(sel.Candidates) != 2 {
		t.Fatalf("expected 2 weighted candidates, got %d", len(sel.Candidates))
	}
	a, b := sel.Candidates[0], sel.Candidates[1]
	if a.Weight <= b.Weight {
		t.Errorf("closer point must weigh more: A=%f B=%f", a.Weight, b.Weight)
	}
	if math.Abs(a.Weight+b.Weight-1) > 1e-9 {
		t.Errorf("weights sum to %f", a.Weight+b.Weight)
	}
	if math.Abs(a.Weight-0.90) > 0.005 {
		t.Errorf("weight(A) = %f, want about 0.90", a.Weight)
	}
	if sel.Origin != origin.Location {
		t.Errorf("origin = %+v", sel.Origin)
	}

	if len(pub.published) != 1 {
		t.Errorf("expected 1 published selection, got %d", len(pub.published))
	}
	v := store.View()
	if v.Selected == nil || v.Selected.Name != "A" {
		t.Errorf("state selected = %+v", v.Selected)
	}
}

func TestRequestSelection_HighDrawPicksFarPoint(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	svc, _ := newService(t, repo, &origin, nil, nil, 0.95)

	sel, err := svc.RequestSelection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Point.Name != "B" {
		t.Errorf("expected B for r=0.95, got %s", sel.Point.Name)
	}
}

func TestRequestSelection_NoPosition(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	svc, store := newService(t, repo, nil, nil, nil, 0)

	_, err := svc.RequestSelection(context.Background())
	if !errors.Is(err, domain.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable, got %v", err)
	}
	if got := store.View().Message; got != usecases.MsgNoPosition {
		t.Errorf("message = %q", got)
	}
}

func TestRequestSelection_EmptySet(t *testing.T) {
	svc, store := newService(t, &mockCandidateRepo{}, &origin, nil, nil, 0)

	_, err := svc.RequestSelection(context.Background())
	if !errors.Is(err, domain.ErrEmptyCandidateSet) {
		t.Fatalf("expected ErrEmptyCandidateSet, got %v", err)
	}
	if got := store.View().Message; got != usecases.MsgNoCandidates {
		t.Errorf("message = %q", got)
	}
}

func TestRequestSelection_RepoError(t *testing.T) {
	repo := &mockCandidateRepo{
		listFn: func(ctx context.Context) ([]domain.Point, error) { return nil, errors.New("db down") },
	}
	svc, _ := newService(t, repo, &origin, nil, nil, 0)

	if _, err := svc.RequestSelection(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRequestSelection_PublishFailureIsNotFatal(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, sel *domain.Selection) error { return errors.New("nats down") },
	}
	svc, _ := newService(t, repo, &origin, pub, nil, 0)

	if _, err := svc.RequestSelection(context.Background()); err != nil {
		t.Fatalf("publish failure must not fail the selection: %v", err)
	}
}

func TestAddLocation_Valid(t *testing.T) {
	repo := &mockCandidateRepo{}
	cache := newMockCache()
	svc, store := newService(t, repo, &origin, nil, cache, 0)

	p, msg, err := svc.AddLocation(context.Background(), "  Nijo Castle ", "35.0142", "135.7480")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != usecases.MsgLocationAdded {
		t.Errorf("message = %q", msg)
	}
	if p.Name != "Nijo Castle" || p.Weight != 0 || p.ID == "" {
		t.Errorf("point = %+v", p)
	}
	if len(repo.points) != 1 {
		t.Errorf("expected 1 stored point, got %d", len(repo.points))
	}
	if len(cache.deleted) != 1 {
		t.Error("expected cache invalidation")
	}
	v := store.View()
	if v.Candidates != 1 || v.Message != usecases.MsgLocationAdded {
		t.Errorf("state = %+v", v)
	}
}

func TestAddLocation_Invalid(t *testing.T) {
	cases := []struct {
		name, lat, lon, field string
	}{
		{"", "35.0", "135.0", "name"},
		{"   ", "35.0", "135.0", "name"},
		{"Foo", "abc", "135.0", "latitude"},
		{"Foo", "35.0", "NaN", "longitude"},
		{"Foo", "91", "135.0", "latitude"},
		{"Foo", "35.0", "-181", "longitude"},
	}

	for _, tc := range cases {
		repo := &mockCandidateRepo{}
		svc, store := newService(t, repo, &origin, nil, nil, 0)

		p, msg, err := svc.AddLocation(context.Background(), tc.name, tc.lat, tc.lon)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected ErrValidation, got %v", tc, err)
			continue
		}
		var verr *domain.ValidationError
		if errors.As(err, &verr) && verr.Field != tc.field {
			t.Errorf("%+v: field = %s", tc, verr.Field)
		}
		if p != nil || msg != usecases.MsgInvalidLocation {
			t.Errorf("%+v: got point %v message %q", tc, p, msg)
		}
		if len(repo.points) != 0 {
			t.Errorf("%+v: candidate set changed", tc)
		}
		if store.View().Message != usecases.MsgInvalidLocation {
			t.Errorf("%+v: state message not set", tc)
		}
	}
}

func TestListCandidates_ReadThroughCache(t *testing.T) {
	calls := 0
	repo := &mockCandidateRepo{}
	repo.listFn = func(ctx context.Context) ([]domain.Point, error) {
		calls++
		return scenarioPoints(), nil
	}
	cache := newMockCache()
	svc, _ := newService(t, repo, &origin, nil, cache, 0)

	for i := 0; i < 3; i++ {
		points, err := svc.ListCandidates(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("expected 2 points, got %d", len(points))
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 repository call, got %d", calls)
	}
}

func TestWeights(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	svc, _ := newService(t, repo, &origin, nil, nil, 0)

	points, at, err := svc.Weights(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at != origin.Location {
		t.Errorf("origin = %+v", at)
	}
	if points[0].Distance == nil || math.Abs(*points[0].Distance-2.83) > 0.05 {
		t.Errorf("distance(A) = %v", points[0].Distance)
	}
	if points[1].Distance == nil || math.Abs(*points[1].Distance-45.2) > 0.1 {
		t.Errorf("distance(B) = %v", points[1].Distance)
	}
	if repo.points[0].Weight != 0 {
		t.Error("Weights must not write back to the repository")
	}
}

func TestNearby(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	svc, _ := newService(t, repo, &origin, nil, nil, 0)

	points, err := svc.Nearby(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 || points[0].Name != "A" {
		t.Fatalf("expected only A within 10 km, got %+v", points)
	}

	points, _ = svc.Nearby(context.Background(), 100)
	if len(points) != 2 || points[0].Name != "A" {
		t.Fatalf("expected A then B within 100 km, got %+v", points)
	}

	if _, err := svc.Nearby(context.Background(), 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for zero radius, got %v", err)
	}
}

func TestNearby_Antimeridian(t *testing.T) {
	pos := domain.Position{Location: domain.GeoPoint{Lat: -17, Lon: 179.99}, FixedAt: time.Now()}
	repo := &mockCandidateRepo{points: []domain.Point{
		domain.NewPoint("West", -17, 179.98),
		domain.NewPoint("East", -17, -179.99),
		domain.NewPoint("Far", -17, 170),
	}}
	svc, _ := newService(t, repo, &pos, nil, nil, 0)

	points, err := svc.Nearby(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points across the antimeridian, got %+v", points)
	}
	if points[0].Name != "West" || points[1].Name != "East" {
		t.Errorf("order = %s, %s; want West, East", points[0].Name, points[1].Name)
	}
}

func TestAddLocation_CacheInvalidationFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cache := newMockCache()
	cache.deleteErr = errors.New("valkey down")
	svc, _ := newService(t, &mockCandidateRepo{points: scenarioPoints()}, &origin, nil, cache, 0)

	if _, _, err := svc.AddLocation(context.Background(), "Tofuku-ji", "34.9767", "135.7736"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "invalidate candidate cache failed") {
		t.Errorf("expected a warning, log was %q", buf.String())
	}
	if !strings.Contains(buf.String(), "valkey down") {
		t.Errorf("warning should carry the cache error, log was %q", buf.String())
	}
}

func TestConcurrentAddAndSelect(t *testing.T) {
	repo := &mockCandidateRepo{points: scenarioPoints()}
	svc, _ := newService(t, repo, &origin, nil, nil, 0.3)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = svc.AddLocation(context.Background(), "P", "35.01", "135.76")
		}()
		go func() {
			defer wg.Done()
			if _, err := svc.RequestSelection(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n, _ := repo.Count(context.Background()); n != 22 {
		t.Errorf("expected 22 candidates, got %d", n)
	}
}
