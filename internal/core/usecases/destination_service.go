package usecases

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/ports"
	"github.com/kyotoapp/nextdest/internal/core/selector"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/pkg/geospatial"
	"github.com/kyotoapp/nextdest/internal/pkg/metrics"
	"github.com/kyotoapp/nextdest/internal/pkg/telemetry"
)

const (
	candidatesCacheKey = "candidates:all"
	candidatesCacheTTL = 300
)

// Messages stored in the state container after a selection attempt.
const (
	MsgNoPosition   = "current location unavailable"
	MsgNoCandidates = "no candidate locations"
	MsgSelectFailed = "could not pick a destination"
)

// DestinationService owns the candidate set and draws the next destination.
// One mutex serializes appends and load-weight-draw cycles.
type DestinationService struct {
	mu        sync.Mutex
	points    ports.CandidateRepository
	position  ports.PositionReader
	cache     ports.CacheService
	publisher ports.EventPublisher
	state     *state.Store
	params    selector.Params
	rnd       selector.RandomSource
	now       func() time.Time
}

// NewDestinationService creates a DestinationService. cache and publisher may
// be nil.
func NewDestinationService(
	points ports.CandidateRepository,
	position ports.PositionReader,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	store *state.Store,
	params selector.Params,
	rnd selector.RandomSource,
) (*DestinationService, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &DestinationService{
		points:    points,
		position:  position,
		cache:     cache,
		publisher: publisher,
		state:     store,
		params:    params,
		rnd:       rnd,
		now:       time.Now,
	}, nil
}

// Params returns the weighting parameters in use.
func (s *DestinationService) Params() selector.Params { return s.params }

// Refresh copies the current candidate count into the state container.
func (s *DestinationService) Refresh(ctx context.Context) error {
	n, err := s.points.Count(ctx)
	if err != nil {
		return fmt.Errorf("count candidates: %w", err)
	}
	s.state.SetCandidates(n)
	metrics.Candidates.Set(float64(n))
	return nil
}

// RequestSelection weights every candidate against the current position and
// draws one of them.
func (s *DestinationService) RequestSelection(ctx context.Context) (*domain.Selection, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRequestSelection)
	defer span.End()

	start := time.Now()
	s.mu.Lock()
	sel, err := s.draw(ctx)
	s.mu.Unlock()
	metrics.SelectionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.Selections.WithLabelValues(selectionOutcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.state.SetMessage(selectionMessage(err))
		return nil, err
	}

	metrics.Selections.WithLabelValues("ok").Inc()
	if sel.Point.Distance != nil {
		metrics.SelectedDistanceKm.Observe(*sel.Point.Distance)
		span.SetAttributes(attribute.Float64(telemetry.AttrDistanceKm, *sel.Point.Distance))
	}
	span.SetAttributes(
		attribute.Int(telemetry.AttrCandidates, len(sel.Candidates)),
		attribute.String(telemetry.AttrSelectedID, sel.Point.ID),
		attribute.String(telemetry.AttrSelectedName, sel.Point.Name),
		attribute.Float64(telemetry.AttrDraw, sel.Draw),
	)

	s.state.SetSelected(sel.Point)
	s.state.SetMessage(sel.Point.Name)

	if s.publisher != nil {
		if err := s.publisher.PublishSelection(ctx, sel); err != nil {
			slog.WarnContext(ctx, "publish selection failed", "error", err, "point", sel.Point.ID)
		}
	}

	slog.InfoContext(ctx, "destination selected",
		"point", sel.Point.Name,
		"weight", sel.Point.Weight,
		"candidates", len(sel.Candidates),
	)
	return sel, nil
}

func (s *DestinationService) draw(ctx context.Context) (*domain.Selection, error) {
	pos, ok := s.position.Current()
	if !ok {
		return nil, domain.ErrPositionUnavailable
	}

	candidates, err := s.points.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	point, r, err := selector.Draw(pos.Location, candidates, s.params, s.rnd)
	if err != nil {
		return nil, err
	}

	return &domain.Selection{
		Point:      point,
		Origin:     pos.Location,
		Candidates: candidates,
		Draw:       r,
		SelectedAt: s.now().UTC(),
	}, nil
}

// AddLocation validates the raw form inputs and appends a new candidate. The
// returned message is the one shown to the user in both outcomes.
func (s *DestinationService) AddLocation(ctx context.Context, name, latitude, longitude string) (*domain.Point, string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAddLocation)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := ParseCandidate(name, latitude, longitude)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationFailures.WithLabelValues(verr.Field).Inc()
		}
		s.state.SetMessage(MsgInvalidLocation)
		return nil, MsgInvalidLocation, err
	}

	if err := s.points.Append(ctx, &p); err != nil {
		span.RecordError(err)
		return nil, "", fmt.Errorf("append candidate: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, candidatesCacheKey); err != nil {
			slog.WarnContext(ctx, "invalidate candidate cache failed", "error", err, "key", candidatesCacheKey)
		}
	}

	if n, err := s.points.Count(ctx); err == nil {
		s.state.SetCandidates(n)
		metrics.Candidates.Set(float64(n))
	}
	s.state.SetMessage(MsgLocationAdded)

	slog.InfoContext(ctx, "location added", "id", p.ID, "name", p.Name)
	return &p, MsgLocationAdded, nil
}

// ListCandidates returns the candidate set in insertion order.
func (s *DestinationService) ListCandidates(ctx context.Context) ([]domain.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, candidatesCacheKey); err == nil {
			var points []domain.Point
			if err := json.Unmarshal(data, &points); err == nil {
				metrics.CacheHits.WithLabelValues("candidates").Inc()
				return points, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("candidates").Inc()
	}

	points, err := s.points.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(points); err == nil {
			_ = s.cache.Set(ctx, candidatesCacheKey, data, candidatesCacheTTL)
		}
	}
	return points, nil
}

// Weights returns every candidate weighted against the current position
// without drawing.
func (s *DestinationService) Weights(ctx context.Context) ([]domain.Point, domain.GeoPoint, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanComputeWeights)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.position.Current()
	if !ok {
		return nil, domain.GeoPoint{}, domain.ErrPositionUnavailable
	}
	candidates, err := s.points.List(ctx)
	if err != nil {
		return nil, domain.GeoPoint{}, fmt.Errorf("load candidates: %w", err)
	}
	if err := selector.ComputeWeights(pos.Location, candidates, s.params); err != nil {
		return nil, domain.GeoPoint{}, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrCandidates, len(candidates)))
	return candidates, pos.Location, nil
}

// Nearby returns candidates within radiusKm of the current position, closest
// first, with Distance filled in.
func (s *DestinationService) Nearby(ctx context.Context, radiusKm float64) ([]domain.Point, error) {
	if radiusKm <= 0 {
		return nil, &domain.ValidationError{Field: "radius_km", Message: "radius must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.position.Current()
	if !ok {
		return nil, domain.ErrPositionUnavailable
	}
	candidates, err := s.points.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	box := geospatial.BoundingBox(pos.Location.Lat, pos.Location.Lon, radiusKm)

	out := make([]domain.Point, 0, len(candidates))
	for _, c := range candidates {
		if !box.Contains(c.Location.Lat, c.Location.Lon) {
			continue
		}
		d := geospatial.DistanceKm(pos.Location.Lat, pos.Location.Lon, c.Location.Lat, c.Location.Lon)
		if d > radiusKm {
			continue
		}
		c.Distance = &d
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b domain.Point) int { return cmp.Compare(*a.Distance, *b.Distance) })
	return out, nil
}

func selectionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrPositionUnavailable):
		return "position_unavailable"
	case errors.Is(err, domain.ErrEmptyCandidateSet):
		return "no_candidates"
	case errors.Is(err, domain.ErrConfiguration):
		return "configuration_error"
	default:
		return "error"
	}
}

func selectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrPositionUnavailable):
		return MsgNoPosition
	case errors.Is(err, domain.ErrEmptyCandidateSet):
		return MsgNoCandidates
	default:
		return MsgSelectFailed
	}
}
