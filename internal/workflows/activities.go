package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.temporal.io/sdk/temporal"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/ports"
	"github.com/kyotoapp/nextdest/internal/core/selector"
)

// DrawActivities holds the activity implementations for the draw workflow.
// Publisher may be nil.
type DrawActivities struct {
	Candidates ports.CandidateRepository
	Publisher  ports.EventPublisher
	Params     selector.Params
	Rand       selector.RandomSource

	mu sync.Mutex // guards Rand
}

// LoadCandidates returns the current candidate set.
func (a *DrawActivities) LoadCandidates(ctx context.Context) ([]domain.Point, error) {
	points, err := a.Candidates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return points, nil
}

// DrawDestination weights candidates against origin and draws one of them.
func (a *DrawActivities) DrawDestination(ctx context.Context, origin domain.GeoPoint, candidates []domain.Point) (*domain.Selection, error) {
	a.mu.Lock()
	point, r, err := selector.Draw(origin, candidates, a.Params, a.Rand)
	a.mu.Unlock()
	switch {
	case errors.Is(err, domain.ErrEmptyCandidateSet):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoCandidates, err)
	case errors.Is(err, domain.ErrConfiguration):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeConfiguration, err)
	case err != nil:
		return nil, err
	}
	return &domain.Selection{
		Point:      point,
		Origin:     origin,
		Candidates: candidates,
		Draw:       r,
	}, nil
}

// AnnounceSelection publishes the selection.
func (a *DrawActivities) AnnounceSelection(ctx context.Context, sel *domain.Selection) error {
	if a.Publisher == nil {
		slog.Info("selection (no publisher)", "point", sel.Point.Name, "weight", sel.Point.Weight)
		return nil
	}
	if err := a.Publisher.PublishSelection(ctx, sel); err != nil {
		return fmt.Errorf("publish selection: %w", err)
	}
	return nil
}
