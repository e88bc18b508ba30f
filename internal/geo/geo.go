// Package geo provides the coordinate value type shared across the report
// pipeline and the short-range distance approximation used by the location
// authenticity check.
package geo

import "math"

// metersPerDegree is the approximate length of one degree of latitude in
// meters. Used to scale degree deltas into meters for short-range checks.
const metersPerDegree = 111320.0

// Point is an immutable WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// NewPoint returns a Point for the given coordinates.
func NewPoint(lat, lon float64) Point {
	return Point{Latitude: lat, Longitude: lon}
}

// Valid reports whether the point is within the WGS84 coordinate bounds.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// IsZero reports whether the point is the zero value. A report located at
// exactly 0,0 (gulf of Guinea) is treated as unset, matching how the mobile
// client treats a missing fix.
func (p Point) IsZero() bool {
	return p.Latitude == 0 && p.Longitude == 0
}

// ApproxDistanceMeters returns the approximate planar distance between two
// points in meters, computed as a scaled degree delta rather than a true
// great-circle distance. The approximation ignores latitude-dependent
// longitude scaling, which is acceptable for proximity checks well below
// 1 km where the verdict thresholds operate.
func ApproxDistanceMeters(a, b Point) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat+dLon*dLon) * metersPerDegree
}
