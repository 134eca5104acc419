package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Step is one entry of a replayed track: a fix, or a failure when Error is set.
type Step struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Error string  `json:"error,omitempty"`
}

// Point returns the step's coordinate.
func (s Step) Point() domain.GeoPoint { return domain.GeoPoint{Lat: s.Lat, Lon: s.Lon} }

// defaultTrack holds a single fix near Arashiyama.
var defaultTrack = []Step{{Lat: 35.0, Lon: 135.45}}

// loadTrack reads a JSON array of steps. An empty path yields the default track.
func loadTrack(path string) ([]Step, error) {
	if path == "" {
		return defaultTrack, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse track: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("track %s is empty", path)
	}
	for i, s := range steps {
		if s.Error == "" && !s.Point().Valid() {
			return nil, fmt.Errorf("track step %d: coordinate out of range", i+1)
		}
	}
	return steps, nil
}
