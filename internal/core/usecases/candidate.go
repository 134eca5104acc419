package usecases

import (
	"math"
	"strconv"
	"strings"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Messages shown after an add-location attempt.
const (
	MsgLocationAdded   = "location added"
	MsgInvalidLocation = "enter a valid name, latitude and longitude"
)

// ParseCandidate turns the raw text inputs of the add-location form into a new
// point. Errors are *domain.ValidationError.
func ParseCandidate(name, latitude, longitude string) (domain.Point, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Point{}, &domain.ValidationError{Field: "name", Message: MsgInvalidLocation}
	}

	lat, ok := parseCoordinate(latitude, 90)
	if !ok {
		return domain.Point{}, &domain.ValidationError{Field: "latitude", Message: MsgInvalidLocation}
	}
	lon, ok := parseCoordinate(longitude, 180)
	if !ok {
		return domain.Point{}, &domain.ValidationError{Field: "longitude", Message: MsgInvalidLocation}
	}

	return domain.NewPoint(name, lat, lon), nil
}

func parseCoordinate(s string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, v >= -limit && v <= limit
}
