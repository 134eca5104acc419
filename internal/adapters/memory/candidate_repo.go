package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// CandidateRepo implements ports.CandidateRepository in process memory. The
// set lives for the lifetime of the process.
type CandidateRepo struct {
	points []domain.Point
	mu     sync.RWMutex
}

// NewCandidateRepo creates a repository holding a copy of initial.
func NewCandidateRepo(initial []domain.Point) *CandidateRepo {
	return &CandidateRepo{points: append([]domain.Point(nil), initial...)}
}

// List returns a copy so callers may write weights freely.
func (r *CandidateRepo) List(ctx context.Context) ([]domain.Point, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Point, len(r.points))
	copy(out, r.points)
	for i := range out {
		out[i].Distance = nil
	}
	return out, nil
}

func (r *CandidateRepo) Append(ctx context.Context, p *domain.Point) error {
	if p.ID == "" {
		return fmt.Errorf("candidate %q has no id", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.points {
		if existing.ID == p.ID {
			return fmt.Errorf("candidate %s already exists", p.ID)
		}
	}
	stored := *p
	stored.Weight = 0
	stored.Distance = nil
	r.points = append(r.points, stored)
	return nil
}

func (r *CandidateRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points), nil
}
