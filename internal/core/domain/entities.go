package domain

import (
	"time"

	"github.com/google/uuid"
)

// Point is a named location eligible to be drawn as the next destination.
type Point struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  GeoPoint  `json:"location"`
	Weight    float64   `json:"weight"`
	Distance  *float64  `json:"distance_km,omitempty"` // computed field
	CreatedAt time.Time `json:"created_at"`
}

// NewPoint creates a point with a fresh identifier and a zero weight.
func NewPoint(name string, lat, lon float64) Point {
	return Point{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  GeoPoint{Lat: lat, Lon: lon},
		CreatedAt: time.Now().UTC(),
	}
}

// Selection is the outcome of one weighted draw.
type Selection struct {
	Point      Point     `json:"point"`
	Origin     GeoPoint  `json:"origin"`
	Candidates []Point   `json:"candidates"`
	Draw       float64   `json:"draw"`
	SelectedAt time.Time `json:"selected_at"`
}

// Position is a location fix reported by the device.
type Position struct {
	Location GeoPoint  `json:"location"`
	FixedAt  time.Time `json:"fixed_at"`
}
