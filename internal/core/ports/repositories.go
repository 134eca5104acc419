package ports

import (
	"context"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// CandidateRepository persists the candidate set. Points are only ever
// appended; List returns them in insertion order.
type CandidateRepository interface {
	List(ctx context.Context) ([]domain.Point, error)
	Append(ctx context.Context, p *domain.Point) error
	Count(ctx context.Context) (int, error)
}

// PositionReader exposes the last usable location fix.
type PositionReader interface {
	Current() (domain.Position, bool)
}
