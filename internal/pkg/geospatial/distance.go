package geospatial

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the IUGG mean Earth radius.
const EarthRadiusKm = 6371.0088

// DistanceKm returns the great-circle distance in kilometers between two points.
// It is the only distance used for weighting and for display.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return AngleToKm(a.Distance(b))
}

// AngleToKm converts a central angle into a surface distance.
func AngleToKm(angle s1.Angle) float64 {
	return angle.Radians() * EarthRadiusKm
}

// Box is a lat/lng rectangle. Its longitude interval may wrap across the
// antimeridian, in which case MinLon > MaxLon.
type Box struct {
	rect s2.Rect
}

// BoundingBox returns the smallest box holding every point within radiusKm of
// (lat, lon).
func BoundingBox(lat, lon, radiusKm float64) Box {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	c := s2.CapFromCenterAngle(center, s1.Angle(radiusKm/EarthRadiusKm))
	return Box{rect: c.RectBound()}
}

// Contains reports whether (lat, lon) lies inside the box.
func (b Box) Contains(lat, lon float64) bool {
	return b.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lon))
}

// Edges returns the box corners in degrees.
func (b Box) Edges() (minLat, minLon, maxLat, maxLon float64) {
	return b.rect.Lo().Lat.Degrees(), b.rect.Lo().Lng.Degrees(), b.rect.Hi().Lat.Degrees(), b.rect.Hi().Lng.Degrees()
}
