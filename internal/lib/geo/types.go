package geo

import (
	"errors"
	"strconv"
)

var (
	// ErrInvalidCoordinate is returned when a latitude is outside [-90, 90] or a
	// longitude is outside [-180, 180].
	ErrInvalidCoordinate = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

	// ErrEmptyCoordinates is returned by operations that need at least one point.
	ErrEmptyCoordinates = errors.New("coordinate sequence is empty")
)

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies inside the WGS84 ranges.
func (p Point) Valid() bool {
	return IsValidCoordinate(p.Latitude, p.Longitude)
}

// Equal reports whether two points have identical latitude and longitude.
func (p Point) Equal(o Point) bool {
	return p.Latitude == o.Latitude && p.Longitude == o.Longitude
}

// String formats the point as "lat,lng" with six decimals, the form map
// providers accept in query strings.
func (p Point) String() string {
	return strconv.FormatFloat(p.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', 6, 64)
}

// Bounds is a lat/lng rectangle used to fit a map viewport.
type Bounds struct {
	Southwest Point `json:"southwest"`
	Northeast Point `json:"northeast"`
}

// Contains reports whether p falls inside the rectangle, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Latitude >= b.Southwest.Latitude && p.Latitude <= b.Northeast.Latitude &&
		p.Longitude >= b.Southwest.Longitude && p.Longitude <= b.Northeast.Longitude
}

// Valid reports whether both corners are valid and southwest is not north or
// east of northeast.
func (b Bounds) Valid() bool {
	return b.Southwest.Valid() && b.Northeast.Valid() &&
		b.Southwest.Latitude <= b.Northeast.Latitude &&
		b.Southwest.Longitude <= b.Northeast.Longitude
}
