// Package selector implements distance-weighted random selection of a next
// destination: every candidate is scored by
//
//	1 / (distance_km + AdjustmentFactor) ^ DistanceExponent
//
// the scores are normalized into weights summing to 1, and one candidate is
// drawn by walking the cumulative weights against a uniform value in [0, 1).
package selector

import (
	"fmt"
	"math"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/pkg/geospatial"
)

const (
	DefaultAdjustmentFactor = 7.5
	DefaultDistanceExponent = 1.35
)

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Params holds the weighting kernel parameters.
type Params struct {
	AdjustmentFactor float64
	DistanceExponent float64
}

// DefaultParams returns the kernel parameters the service runs with.
func DefaultParams() Params {
	return Params{
		AdjustmentFactor: DefaultAdjustmentFactor,
		DistanceExponent: DefaultDistanceExponent,
	}
}

// Validate rejects parameters that cannot yield a finite, decreasing kernel.
func (p Params) Validate() error {
	if math.IsNaN(p.AdjustmentFactor) || math.IsInf(p.AdjustmentFactor, 0) || p.AdjustmentFactor <= 0 {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("adjustment factor must be positive and finite, got %v", p.AdjustmentFactor)}
	}
	if math.IsNaN(p.DistanceExponent) || math.IsInf(p.DistanceExponent, 0) || p.DistanceExponent <= 0 {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("distance exponent must be positive and finite, got %v", p.DistanceExponent)}
	}
	return nil
}

// Score is the unnormalized kernel value for a distance in kilometers.
func (p Params) Score(distanceKm float64) float64 {
	return 1 / math.Pow(distanceKm+p.AdjustmentFactor, p.DistanceExponent)
}

// ComputeWeights assigns every candidate its normalized weight and distance
// from origin, in place. An empty slice is left alone. Degenerate scores return
// a *domain.ConfigurationError and leave the candidates untouched.
func ComputeWeights(origin domain.GeoPoint, candidates []domain.Point, params Params) error {
	if len(candidates) == 0 {
		return nil
	}

	distances := make([]float64, len(candidates))
	scores := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		d := geospatial.DistanceKm(origin.Lat, origin.Lon, c.Location.Lat, c.Location.Lon)
		s := params.Score(d)
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return &domain.ConfigurationError{
				Reason: fmt.Sprintf("score for %q is %v at %.3f km", c.Name, s, d),
			}
		}
		distances[i] = d
		scores[i] = s
		total += s
	}

	if math.IsInf(total, 0) || total <= 0 {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("total score is %v", total)}
	}

	for i := range candidates {
		d := distances[i]
		candidates[i].Weight = scores[i] / total
		candidates[i].Distance = &d
	}
	return nil
}

// SelectWeighted draws one candidate by cumulative-weight sampling and
// returns it together with the uniform value used.
func SelectWeighted(candidates []domain.Point, rnd RandomSource) (domain.Point, float64, error) {
	if len(candidates) == 0 {
		return domain.Point{}, 0, domain.ErrEmptyCandidateSet
	}

	r := rnd.Float64()
	return candidates[Pick(candidates, r)], r, nil
}

// Pick returns the index of the first candidate whose cumulative weight exceeds
// r. When rounding keeps the running sum at or below r the last index is
// returned. candidates must be non-empty.
func Pick(candidates []domain.Point, r float64) int {
	var cumulative float64
	for i, c := range candidates {
		cumulative += c.Weight
		if r < cumulative {
			return i
		}
	}
	return len(candidates) - 1
}

// Draw weights candidates against origin and then selects one of them.
func Draw(origin domain.GeoPoint, candidates []domain.Point, params Params, rnd RandomSource) (domain.Point, float64, error) {
	if len(candidates) == 0 {
		return domain.Point{}, 0, domain.ErrEmptyCandidateSet
	}
	if err := ComputeWeights(origin, candidates, params); err != nil {
		return domain.Point{}, 0, err
	}
	return SelectWeighted(candidates, rnd)
}
