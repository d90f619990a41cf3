package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle math.
const EarthRadiusKm = 6371.0

// Haversine calculates great-circle distance in kilometers between two points.
// Inputs are assumed to be valid; use Distance for externally sourced points.
func Haversine(p1, p2 Point) float64 {
	// If points are the same, distance is 0
	if p1.Equal(p2) {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dlat := lat2 - lat1
	dlon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)

	// Rounding can push a just past 1 for antipodal points, which would make
	// sqrt(1-a) NaN.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance calculates great-circle distance in kilometers after validating
// both points.
func Distance(p1, p2 Point) (float64, error) {
	if !p1.Valid() || !p2.Valid() {
		return 0, ErrInvalidCoordinate
	}
	return Haversine(p1, p2), nil
}

// Bearing returns the initial compass bearing from p1 to p2 in [0, 360).
// The bearing between identical points is 0 by convention.
func Bearing(p1, p2 Point) float64 {
	if p1.Equal(p2) {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dlon := toRadians(p2.Longitude - p1.Longitude)

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)

	bearing := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

// Centroid returns the arithmetic mean of latitudes and longitudes. This is a
// city-scale approximation, not a great-circle centroid.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmptyCoordinates
	}

	var totalLat, totalLon float64
	for _, p := range points {
		totalLat += p.Latitude
		totalLon += p.Longitude
	}

	n := float64(len(points))
	return Point{Latitude: totalLat / n, Longitude: totalLon / n}, nil
}

// BoundingBox returns the min/max rectangle around points expanded by padding
// degrees on every side.
func BoundingBox(points []Point, padding float64) (Bounds, error) {
	if len(points) == 0 {
		return Bounds{}, ErrEmptyCoordinates
	}

	minLat, maxLat := points[0].Latitude, points[0].Latitude
	minLon, maxLon := points[0].Longitude, points[0].Longitude

	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLon = math.Min(minLon, p.Longitude)
		maxLon = math.Max(maxLon, p.Longitude)
	}

	return Bounds{
		Southwest: Point{Latitude: minLat - padding, Longitude: minLon - padding},
		Northeast: Point{Latitude: maxLat + padding, Longitude: maxLon + padding},
	}, nil
}

// Interpolate returns n+1 points linearly spaced in lat/lng space from start
// to end, both inclusive. n <= 0 yields just the start point.
func Interpolate(start, end Point, n int) []Point {
	if n <= 0 {
		return []Point{start}
	}

	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		points = append(points, interpolatePoint(start, end, t))
	}
	// Pin the last point so float drift never moves the destination.
	points[n] = end

	return points
}

// interpolatePoint calculates a point along the straight lat/lng segment
// t=0 returns start, t=1 returns end, t=0.5 returns midpoint
func interpolatePoint(start, end Point, t float64) Point {
	lat := start.Latitude + t*(end.Latitude-start.Latitude)
	lon := start.Longitude + t*(end.Longitude-start.Longitude)

	return Point{Latitude: lat, Longitude: lon}
}

// IsWithinRadius reports whether p is at most radiusKm from center.
func IsWithinRadius(center, p Point, radiusKm float64) bool {
	distance, err := Distance(center, p)
	if err != nil {
		return false
	}
	return distance <= radiusKm
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !point.Valid() {
		return Point{}, ErrInvalidCoordinate
	}
	return point, nil
}

// IsValidCoordinate validates latitude and longitude ranges. NaN fails every
// comparison and is rejected as well.
func IsValidCoordinate(latitude, longitude float64) bool {
	return latitude >= -90 && latitude <= 90 &&
		longitude >= -180 && longitude <= 180
}

// FormatCoordinates renders "lat, lng" for display with the given number of
// decimals.
func FormatCoordinates(latitude, longitude float64, precision int) string {
	if !IsValidCoordinate(latitude, longitude) {
		return "Invalid coordinates"
	}
	if precision < 0 {
		precision = 6
	}
	return fmt.Sprintf("%.*f, %.*f", precision, latitude, precision, longitude)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}
